package checkout

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
	"github.com/beep-labs/beep-go/money"
)

// ProductAPI is the slice of the Beep API the resolver needs
type ProductAPI interface {
	GetProduct(ctx context.Context, id string) (*beep.Product, error)
	ListProducts(ctx context.Context, opts *beep.ListProductsOptions) ([]beep.Product, error)
	CreateProduct(ctx context.Context, payload beep.CreateProductPayload) (*beep.Product, error)
}

// Resolver turns heterogeneous asset references into canonical products.
// Ad-hoc references are matched against existing products by (name,
// base-unit price) before creating anything, so a retried or re-rendered
// checkout reuses the product created the first time around. The match is
// best effort: two truly concurrent resolutions of the same new product can
// still race and create two records.
type Resolver struct {
	api      ProductAPI
	decimals int32
	logger   *zap.Logger
}

// ResolverOption configures the resolver
type ResolverOption func(*Resolver)

// WithResolverLogger sets a structured logger
func WithResolverLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a resolver using the settlement token's precision
func NewResolver(api ProductAPI, decimals int32, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:      api,
		decimals: decimals,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolution is the output of resolving an asset list
type Resolution struct {
	Assets []ResolvedAsset
	// TotalBaseUnits is sum(unitPrice * quantity) in integer base units
	TotalBaseUnits uint64
	// CreatedProducts flags that product records were persisted as a side
	// effect of this otherwise read-style call.
	CreatedProducts bool
}

// TotalAmount renders the total as a decimal string
func (r Resolution) TotalAmount(decimals int32) string {
	return money.FromBaseUnits(r.TotalBaseUnits, decimals).String()
}

// Resolve normalizes a list of asset references to canonical products.
// Failure on any entry aborts the whole resolution; nothing needs rolling
// back because creation is idempotent by (name, price) match.
func (r *Resolver) Resolve(ctx context.Context, refs []AssetReference) (*Resolution, error) {
	if len(refs) == 0 {
		return nil, beep.NewError(beep.ErrCodeValidation, "at least one asset reference is required", nil)
	}

	resolution := &Resolution{}
	// Products resolved earlier in this list, keyed by (name, base units),
	// so duplicate ad-hoc entries collapse to one product.
	seen := make(map[string]*ResolvedAsset)

	for i, ref := range refs {
		resolved, err := r.resolveOne(ctx, ref, seen)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve asset %d (%s): %w", i, ref.label(), err)
		}
		if resolved.Created {
			resolution.CreatedProducts = true
		}
		resolution.Assets = append(resolution.Assets, *resolved)
		resolution.TotalBaseUnits += resolved.UnitPrice * uint64(resolved.Quantity)
	}

	return resolution, nil
}

func (r *Resolver) resolveOne(ctx context.Context, ref AssetReference, seen map[string]*ResolvedAsset) (*ResolvedAsset, error) {
	kind, err := ref.kind()
	if err != nil {
		return nil, err
	}

	if kind == kindExisting {
		product, err := r.api.GetProduct(ctx, ref.AssetID)
		if err != nil {
			return nil, err
		}
		unitPrice, err := money.ParseToBaseUnits(product.Price, r.decimals)
		if err != nil {
			return nil, err
		}
		return &ResolvedAsset{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  ref.quantity(),
			UnitPrice: unitPrice,
		}, nil
	}

	price, err := ref.priceDecimal()
	if err != nil {
		return nil, err
	}
	unitPrice, err := money.ToBaseUnits(price, r.decimals)
	if err != nil {
		return nil, err
	}

	matchKey := fmt.Sprintf("%s\x00%d", ref.Name, unitPrice)
	if prior, ok := seen[matchKey]; ok {
		return &ResolvedAsset{
			ProductID: prior.ProductID,
			Name:      prior.Name,
			Quantity:  ref.quantity(),
			UnitPrice: prior.UnitPrice,
		}, nil
	}

	resolved, err := r.matchOrCreate(ctx, ref, unitPrice)
	if err != nil {
		return nil, err
	}
	seen[matchKey] = resolved
	return resolved, nil
}

// matchOrCreate reuses an existing product with the same name and base-unit
// price, creating one only when no match exists. Description differences do
// not disqualify a match.
func (r *Resolver) matchOrCreate(ctx context.Context, ref AssetReference, unitPrice uint64) (*ResolvedAsset, error) {
	existing, err := r.api.ListProducts(ctx, &beep.ListProductsOptions{Name: ref.Name})
	if err != nil {
		return nil, err
	}

	for _, product := range existing {
		candidate, err := money.ParseToBaseUnits(product.Price, r.decimals)
		if err != nil {
			continue
		}
		if product.Name == ref.Name && candidate == unitPrice {
			r.logger.Debug("reusing existing product",
				zap.String("product_id", product.ID),
				zap.String("name", product.Name))
			return &ResolvedAsset{
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  ref.quantity(),
				UnitPrice: unitPrice,
			}, nil
		}
	}

	product, err := r.api.CreateProduct(ctx, beep.CreateProductPayload{
		Name:        ref.Name,
		Price:       money.FromBaseUnits(unitPrice, r.decimals).String(),
		Description: ref.Description,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("created product during checkout",
		zap.String("product_id", product.ID),
		zap.String("name", product.Name))

	return &ResolvedAsset{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  ref.quantity(),
		UnitPrice: unitPrice,
		Created:   true,
	}, nil
}

// label names an asset reference for error messages
func (r AssetReference) label() string {
	if r.AssetID != "" {
		return r.AssetID
	}
	return r.Name
}
