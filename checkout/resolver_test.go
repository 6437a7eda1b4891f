package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	beep "github.com/beep-labs/beep-go"
)

// fakeAPI implements ProductAPI and PaymentAPI in memory
type fakeAPI struct {
	mu           sync.Mutex
	products     []beep.Product
	nextID       int
	createCalls  int
	paymentCalls int
	paymentErr   error
}

func newFakeAPI(seed ...beep.Product) *fakeAPI {
	return &fakeAPI{products: seed, nextID: 100}
}

func (f *fakeAPI) GetProduct(ctx context.Context, id string) (*beep.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, beep.NewError(beep.ErrCodeNotFound, "no product "+id, nil)
}

func (f *fakeAPI) ListProducts(ctx context.Context, opts *beep.ListProductsOptions) ([]beep.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []beep.Product
	for _, p := range f.products {
		if opts == nil || opts.Name == "" || p.Name == opts.Name {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateProduct(ctx context.Context, payload beep.CreateProductPayload) (*beep.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.nextID++
	product := beep.Product{
		ID:          fmt.Sprintf("prod_%d", f.nextID),
		Name:        payload.Name,
		Price:       payload.Price,
		Description: payload.Description,
		CreatedAt:   time.Now(),
	}
	f.products = append(f.products, product)
	return &product, nil
}

func (f *fakeAPI) CreatePayment(ctx context.Context, req beep.CreatePaymentRequest) (*beep.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}
	f.paymentCalls++
	return &beep.PaymentRequest{
		ReferenceKey:       fmt.Sprintf("ref_%d", f.paymentCalls),
		PaymentURL:         fmt.Sprintf("https://pay.example/ref_%d", f.paymentCalls),
		DestinationAddress: "8Y9qzH7aZLk1dXnZS3hPxu4B2WcFgJ6eN5vR1mKtTqAp",
		TotalAmount:        "1.50",
		ExpiresAt:          time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *fakeAPI) payments() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paymentCalls
}

func TestResolveExistingProduct(t *testing.T) {
	api := newFakeAPI(beep.Product{ID: "prod_1", Name: "Coffee", Price: "3.50"})
	resolver := NewResolver(api, 6)

	resolution, err := resolver.Resolve(context.Background(), []AssetReference{
		{AssetID: "prod_1", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, resolution.Assets, 1)

	assert.Equal(t, "prod_1", resolution.Assets[0].ProductID)
	assert.Equal(t, 2, resolution.Assets[0].Quantity)
	assert.Equal(t, uint64(3500000), resolution.Assets[0].UnitPrice)
	assert.Equal(t, uint64(7000000), resolution.TotalBaseUnits)
	assert.False(t, resolution.CreatedProducts)
}

func TestResolveUnknownProductAborts(t *testing.T) {
	api := newFakeAPI()
	resolver := NewResolver(api, 6)

	_, err := resolver.Resolve(context.Background(), []AssetReference{
		{AssetID: "prod_missing"},
	})
	require.Error(t, err)
	assert.True(t, beep.IsNotFound(err))
	assert.True(t, strings.Contains(err.Error(), "prod_missing"))
}

func TestResolveAdHocCreatesOnce(t *testing.T) {
	api := newFakeAPI()
	resolver := NewResolver(api, 6)
	refs := []AssetReference{{Name: "Espresso", Price: "2.25"}}

	first, err := resolver.Resolve(context.Background(), refs)
	require.NoError(t, err)
	require.True(t, first.CreatedProducts)

	second, err := resolver.Resolve(context.Background(), refs)
	require.NoError(t, err)
	assert.False(t, second.CreatedProducts)
	assert.Equal(t, first.Assets[0].ProductID, second.Assets[0].ProductID)
	assert.Equal(t, 1, api.createCalls)
}

func TestResolveMatchIgnoresDescription(t *testing.T) {
	api := newFakeAPI()
	resolver := NewResolver(api, 6)

	first, err := resolver.Resolve(context.Background(), []AssetReference{
		{Name: "Espresso", Price: "2.25", Description: "single shot"},
	})
	require.NoError(t, err)

	second, err := resolver.Resolve(context.Background(), []AssetReference{
		{Name: "Espresso", Price: "2.25", Description: "double shot"},
	})
	require.NoError(t, err)
	assert.Equal(t, first.Assets[0].ProductID, second.Assets[0].ProductID)
	assert.Equal(t, 1, api.createCalls)
}

func TestResolveDifferentPriceCreatesNewProduct(t *testing.T) {
	api := newFakeAPI()
	resolver := NewResolver(api, 6)

	_, err := resolver.Resolve(context.Background(), []AssetReference{
		{Name: "Espresso", Price: "2.25"},
	})
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), []AssetReference{
		{Name: "Espresso", Price: "2.50"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, api.createCalls)
}

func TestResolveDuplicateEntriesInOneList(t *testing.T) {
	api := newFakeAPI()
	resolver := NewResolver(api, 6)

	resolution, err := resolver.Resolve(context.Background(), []AssetReference{
		{Name: "Sticker", Price: "0.50", Quantity: 1},
		{Name: "Sticker", Price: "0.50", Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, resolution.Assets, 2)

	assert.Equal(t, resolution.Assets[0].ProductID, resolution.Assets[1].ProductID)
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, uint64(2000000), resolution.TotalBaseUnits)
}

func TestResolveQuantityDefaultsToOne(t *testing.T) {
	api := newFakeAPI(beep.Product{ID: "prod_1", Name: "Coffee", Price: "3.50"})
	resolver := NewResolver(api, 6)

	resolution, err := resolver.Resolve(context.Background(), []AssetReference{
		{AssetID: "prod_1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resolution.Assets[0].Quantity)
}

func TestResolveRejectsAmbiguousShape(t *testing.T) {
	resolver := NewResolver(newFakeAPI(), 6)

	_, err := resolver.Resolve(context.Background(), []AssetReference{
		{AssetID: "prod_1", Name: "Coffee", Price: "3.50"},
	})
	assert.True(t, beep.IsValidation(err))

	_, err = resolver.Resolve(context.Background(), []AssetReference{
		{Description: "nothing else set"},
	})
	assert.True(t, beep.IsValidation(err))
}

func TestResolveEmptyList(t *testing.T) {
	resolver := NewResolver(newFakeAPI(), 6)
	_, err := resolver.Resolve(context.Background(), nil)
	assert.True(t, beep.IsValidation(err))
}

func TestTotalUsesBaseUnitArithmetic(t *testing.T) {
	api := newFakeAPI(
		beep.Product{ID: "prod_1", Name: "A", Price: "0.1"},
		beep.Product{ID: "prod_2", Name: "B", Price: "0.2"},
	)
	resolver := NewResolver(api, 6)

	resolution, err := resolver.Resolve(context.Background(), []AssetReference{
		{AssetID: "prod_1"},
		{AssetID: "prod_2"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(300000), resolution.TotalBaseUnits)
	assert.Equal(t, "0.3", resolution.TotalAmount(6))
}
