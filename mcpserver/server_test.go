package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	beep "github.com/beep-labs/beep-go"
	"github.com/beep-labs/beep-go/checkout"
	"github.com/beep-labs/beep-go/settlement"
)

// testBackend is an in-memory Beep API served over httptest
type testBackend struct {
	mu       sync.Mutex
	products []beep.Product
	invoices map[string]beep.InvoiceStatus
	payments int
}

func newTestBackend() *testBackend {
	return &testBackend{invoices: make(map[string]beep.InvoiceStatus)}
}

func (b *testBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(beep.HealthStatus{Status: "ok"})
	})

	mux.HandleFunc("GET /v1/products", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		name := r.URL.Query().Get("name")
		matched := []beep.Product{}
		for _, p := range b.products {
			if name == "" || p.Name == name {
				matched = append(matched, p)
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"products": matched})
	})

	mux.HandleFunc("POST /v1/products", func(w http.ResponseWriter, r *http.Request) {
		var payload beep.CreateProductPayload
		json.NewDecoder(r.Body).Decode(&payload)
		b.mu.Lock()
		product := beep.Product{
			ID:          "prod_" + strconv.Itoa(len(b.products)+1),
			Name:        payload.Name,
			Price:       payload.Price,
			Description: payload.Description,
		}
		b.products = append(b.products, product)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(product)
	})

	mux.HandleFunc("POST /v1/payments", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.payments++
		ref := fmt.Sprintf("ref_%d", b.payments)
		b.invoices[ref] = beep.InvoicePending
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(beep.PaymentRequest{
			ReferenceKey:       ref,
			PaymentURL:         "https://pay.justbeep.it/" + ref,
			DestinationAddress: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
			TotalAmount:        "10.00",
			ExpiresAt:          time.Now().Add(5 * time.Minute),
		})
	})

	mux.HandleFunc("GET /v1/invoices/", func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Path[len("/v1/invoices/"):]
		b.mu.Lock()
		status, ok := b.invoices[ref]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "unknown invoice"}})
			return
		}
		json.NewEncoder(w).Encode(beep.Invoice{ReferenceKey: ref, Status: status})
	})

	return mux
}

func newTestServer(t *testing.T) (*Server, *testBackend) {
	t.Helper()

	backend := newTestBackend()
	httpSrv := httptest.NewServer(backend.handler())
	t.Cleanup(httpSrv.Close)

	api := beep.NewClient("beep_test_key", beep.WithBaseURL(httpSrv.URL))
	resolver := checkout.NewResolver(api, settlement.USDCDecimals)
	initiator := checkout.NewInitiator(api, "beep_test_key")
	flow := checkout.NewFlow(resolver, initiator, settlement.USDCDecimals)
	streamer := checkout.NewStreamer(flow, nil)
	t.Cleanup(streamer.StopAll)

	server := New(Deps{
		API:      api,
		Flow:     flow,
		Streamer: streamer,
	})
	return server, backend
}

func callTool(t *testing.T, server *Server, name string, args interface{}) *mcpsdk.CallToolResult {
	t.Helper()

	var raw json.RawMessage
	if args != nil {
		data, err := json.Marshal(args)
		require.NoError(t, err)
		raw = data
	}

	handler := map[string]func(context.Context, *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error){
		"health":                  server.handleHealth,
		"listProducts":            server.handleListProducts,
		"createProduct":           server.handleCreateProduct,
		"issuePayment":            server.handleIssuePayment,
		"requestAndPurchaseAsset": server.handlePurchase,
		"getPaymentStatus":        server.handlePaymentStatus,
		"startStreaming":          server.handleStartStreaming,
		"stopStreaming":           server.handleStopStreaming,
	}[name]
	require.NotNil(t, handler, "unknown tool %s", name)

	result, err := handler(context.Background(), &mcpsdk.CallToolRequest{
		Params: &mcpsdk.CallToolParamsRaw{Name: name, Arguments: raw},
	})
	require.NoError(t, err)
	return result
}

func resultText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestHealthTool(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "health", nil)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"ok"`)
}

func TestCreateAndListProductTools(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "createProduct", map[string]string{
		"name":  "API Credits",
		"price": "25.50",
	})
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "prod_1")

	result = callTool(t, server, "listProducts", map[string]string{"name": "API Credits"})
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "API Credits")

	result = callTool(t, server, "listProducts", map[string]string{"name": "No Such Product"})
	require.False(t, result.IsError)
	assert.NotContains(t, resultText(t, result), "API Credits")
}

func TestIssuePaymentTool(t *testing.T) {
	server, backend := newTestServer(t)

	result := callTool(t, server, "issuePayment", map[string]interface{}{
		"assets": []map[string]interface{}{
			{"name": "Report", "price": "5.00", "quantity": 2},
		},
		"label": "order-42",
	})
	require.False(t, result.IsError, resultText(t, result))

	var setup checkout.PaymentSetup
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &setup))
	assert.Equal(t, "ref_1", setup.ReferenceKey)
	assert.NotEmpty(t, setup.PaymentURL)
	assert.NotEmpty(t, setup.QRCode)
	assert.Equal(t, 1, backend.payments)

	// identical inputs inside the cache window reuse the session
	result = callTool(t, server, "issuePayment", map[string]interface{}{
		"assets": []map[string]interface{}{
			{"name": "Report", "price": "5.00", "quantity": 2},
		},
		"label": "order-42",
	})
	require.False(t, result.IsError)
	assert.Equal(t, 1, backend.payments)
}

func TestIssuePaymentToolRejectsEmptyAssets(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "issuePayment", map[string]interface{}{
		"assets": []map[string]interface{}{},
	})
	assert.True(t, result.IsError)
}

func TestPurchaseToolWithoutWallet(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "requestAndPurchaseAsset", map[string]interface{}{
		"assets": []map[string]interface{}{
			{"name": "Report", "price": "5.00"},
		},
	})
	require.False(t, result.IsError, resultText(t, result))

	var purchase purchaseResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &purchase))
	require.NotNil(t, purchase.Setup)
	assert.Empty(t, purchase.Transaction)
	assert.NotEmpty(t, purchase.Setup.PaymentURL)
}

func TestPaymentStatusTool(t *testing.T) {
	server, backend := newTestServer(t)

	callTool(t, server, "issuePayment", map[string]interface{}{
		"assets": []map[string]interface{}{{"name": "Report", "price": "5.00"}},
	})
	backend.mu.Lock()
	backend.invoices["ref_1"] = beep.InvoicePaid
	backend.mu.Unlock()

	result := callTool(t, server, "getPaymentStatus", map[string]string{"referenceKey": "ref_1"})
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"paid"`)

	result = callTool(t, server, "getPaymentStatus", map[string]string{"referenceKey": "ref_missing"})
	assert.True(t, result.IsError)

	// neither referenceKey nor transaction
	result = callTool(t, server, "getPaymentStatus", map[string]string{})
	assert.True(t, result.IsError)
}

func TestStreamingTools(t *testing.T) {
	server, _ := newTestServer(t)

	result := callTool(t, server, "startStreaming", map[string]interface{}{
		"name":            "subscription",
		"assets":          []map[string]interface{}{{"name": "Minute", "price": "0.10"}},
		"intervalSeconds": 60,
	})
	require.False(t, result.IsError, resultText(t, result))

	// duplicate name is rejected inside the tool envelope
	result = callTool(t, server, "startStreaming", map[string]interface{}{
		"name":   "subscription",
		"assets": []map[string]interface{}{{"name": "Minute", "price": "0.10"}},
	})
	assert.True(t, result.IsError)

	result = callTool(t, server, "stopStreaming", map[string]string{"name": "subscription"})
	assert.False(t, result.IsError)

	result = callTool(t, server, "stopStreaming", map[string]string{"name": "subscription"})
	assert.True(t, result.IsError)
}

func TestToolsRegistered(t *testing.T) {
	server, _ := newTestServer(t)
	assert.NotNil(t, server.MCP())
}
