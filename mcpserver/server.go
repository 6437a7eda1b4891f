// Package mcpserver exposes the Beep checkout and settlement flows as MCP
// tools over stdio or HTTP transports.
package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	solana "github.com/gagliardetto/solana-go"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
	"github.com/beep-labs/beep-go/checkout"
	"github.com/beep-labs/beep-go/settlement"
)

const serverVersion = "1.0.0"

// Deps are the collaborators behind the tool surface. Submitter and Chain
// are optional; without them requestAndPurchaseAsset stops after session
// creation and returns the payment URL for an external wallet.
type Deps struct {
	API       *beep.Client
	Flow      *checkout.Flow
	Streamer  *checkout.Streamer
	Poller    *settlement.Poller
	Submitter *settlement.Submitter
	Chain     settlement.ChainClient
	Logger    *zap.Logger
}

// Server is the Beep MCP tool server
type Server struct {
	deps   Deps
	logger *zap.Logger
	mcp    *mcpsdk.Server
}

// New creates the MCP server and registers all tools
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		deps:   deps,
		logger: logger,
		mcp: mcpsdk.NewServer(&mcpsdk.Implementation{
			Name:    "beep-mcp-server",
			Version: serverVersion,
		}, nil),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying SDK server
func (s *Server) MCP() *mcpsdk.Server {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "health",
		Description: "Check Beep backend availability.",
		InputSchema: map[string]interface{}{"type": "object"},
	}, s.handleHealth)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "listProducts",
		Description: "List products, optionally filtered by exact name.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string", "description": "Exact product name filter"},
			},
		},
	}, s.handleListProducts)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "createProduct",
		Description: "Create a product with a name and decimal price.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":        map[string]interface{}{"type": "string"},
				"price":       map[string]interface{}{"type": "string", "description": "Decimal price, e.g. \"19.99\""},
				"description": map[string]interface{}{"type": "string"},
			},
			"required": []string{"name", "price"},
		},
	}, s.handleCreateProduct)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "issuePayment",
		Description: "Resolve assets and open a payment session. Returns the payment URL, QR code, and reference key.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"assets": assetListSchema(),
				"label":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"assets"},
		},
	}, s.handleIssuePayment)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "requestAndPurchaseAsset",
		Description: "Resolve assets, open a payment session, and settle it with the configured wallet.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"assets": assetListSchema(),
				"label":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"assets"},
		},
	}, s.handlePurchase)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "getPaymentStatus",
		Description: "Query current status of a payment session by reference key, or of a transaction by signature.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"referenceKey": map[string]interface{}{"type": "string"},
				"transaction":  map[string]interface{}{"type": "string"},
			},
		},
	}, s.handlePaymentStatus)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "startStreaming",
		Description: "Start a named streaming checkout that opens a fresh payment session at a fixed interval.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name":            map[string]interface{}{"type": "string"},
				"assets":          assetListSchema(),
				"label":           map[string]interface{}{"type": "string"},
				"intervalSeconds": map[string]interface{}{"type": "integer", "minimum": 1},
			},
			"required": []string{"name", "assets"},
		},
	}, s.handleStartStreaming)

	s.mcp.AddTool(&mcpsdk.Tool{
		Name:        "stopStreaming",
		Description: "Stop a named streaming checkout.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
			},
			"required": []string{"name"},
		},
	}, s.handleStopStreaming)
}

func assetListSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"assetId":     map[string]interface{}{"type": "string", "description": "Existing product id"},
				"name":        map[string]interface{}{"type": "string", "description": "Ad-hoc product name"},
				"price":       map[string]interface{}{"type": "string", "description": "Ad-hoc decimal price"},
				"description": map[string]interface{}{"type": "string"},
				"quantity":    map[string]interface{}{"type": "integer", "minimum": 1},
			},
		},
	}
}

// decodeArgs unmarshals tool arguments into a typed parameter struct
func decodeArgs(req *mcpsdk.CallToolRequest, out interface{}) error {
	if req.Params.Arguments == nil {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, out)
}

// toolError wraps a failure in the MCP result envelope. Tool failures stay
// inside the tool call; they never take down the transport.
func (s *Server) toolError(name string, err error) *mcpsdk.CallToolResult {
	s.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
	}
}

func toolJSON(v interface{}) *mcpsdk.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}
}

func (s *Server) handleHealth(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	status, err := s.deps.API.Health(ctx)
	if err != nil {
		return s.toolError("health", err), nil
	}
	return toolJSON(status), nil
}

func (s *Server) handleListProducts(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params listProductsParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("listProducts", err), nil
	}

	var opts *beep.ListProductsOptions
	if params.Name != "" {
		opts = &beep.ListProductsOptions{Name: params.Name}
	}
	products, err := s.deps.API.ListProducts(ctx, opts)
	if err != nil {
		return s.toolError("listProducts", err), nil
	}
	return toolJSON(products), nil
}

func (s *Server) handleCreateProduct(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params createProductParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("createProduct", err), nil
	}

	product, err := s.deps.API.CreateProduct(ctx, beep.CreateProductPayload{
		Name:        params.Name,
		Price:       params.Price,
		Description: params.Description,
	})
	if err != nil {
		return s.toolError("createProduct", err), nil
	}
	return toolJSON(product), nil
}

func (s *Server) handleIssuePayment(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params issuePaymentParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("issuePayment", err), nil
	}

	setup, err := s.deps.Flow.RequestPayment(ctx, params.Assets, params.Label)
	if err != nil {
		return s.toolError("issuePayment", err), nil
	}
	return toolJSON(setup), nil
}

func (s *Server) handlePurchase(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params purchaseParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("requestAndPurchaseAsset", err), nil
	}

	setup, err := s.deps.Flow.RequestPayment(ctx, params.Assets, params.Label)
	if err != nil {
		return s.toolError("requestAndPurchaseAsset", err), nil
	}

	result := purchaseResult{Setup: setup}
	if s.deps.Submitter == nil {
		// No wallet configured; hand back the session for external payment.
		return toolJSON(result), nil
	}

	sig, err := s.deps.Submitter.Submit(ctx, setup)
	if err != nil {
		return s.toolError("requestAndPurchaseAsset", err), nil
	}
	result.Transaction = sig.String()

	status, err := s.deps.Poller.Wait(ctx, sig)
	if err != nil {
		return s.toolError("requestAndPurchaseAsset", err), nil
	}
	result.Status = string(status)

	return toolJSON(result), nil
}

func (s *Server) handlePaymentStatus(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params paymentStatusParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("getPaymentStatus", err), nil
	}

	switch {
	case params.ReferenceKey != "":
		invoice, err := s.deps.API.GetInvoice(ctx, params.ReferenceKey)
		if err != nil {
			return s.toolError("getPaymentStatus", err), nil
		}
		return toolJSON(invoice), nil
	case params.Transaction != "":
		if s.deps.Chain == nil {
			return s.toolError("getPaymentStatus",
				beep.NewError(beep.ErrCodeValidation, "no chain client configured", nil)), nil
		}
		sig, err := solana.SignatureFromBase58(params.Transaction)
		if err != nil {
			return s.toolError("getPaymentStatus",
				beep.NewError(beep.ErrCodeValidation, "invalid transaction signature", nil)), nil
		}
		status, err := s.deps.Chain.SignatureStatus(ctx, sig)
		if err != nil {
			return s.toolError("getPaymentStatus", err), nil
		}
		return toolJSON(map[string]string{"transaction": params.Transaction, "status": string(status)}), nil
	default:
		return s.toolError("getPaymentStatus",
			beep.NewError(beep.ErrCodeValidation, "referenceKey or transaction is required", nil)), nil
	}
}

func (s *Server) handleStartStreaming(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params startStreamingParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("startStreaming", err), nil
	}

	interval := time.Duration(params.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}

	// Streams outlive the tool call, so they hang off the server lifetime,
	// not the request context.
	if err := s.deps.Streamer.Start(context.Background(), params.Name, params.Assets, params.Label, interval); err != nil {
		return s.toolError("startStreaming", err), nil
	}
	return toolJSON(map[string]interface{}{"started": params.Name, "interval": interval.String()}), nil
}

func (s *Server) handleStopStreaming(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	var params stopStreamingParams
	if err := decodeArgs(req, &params); err != nil {
		return s.toolError("stopStreaming", err), nil
	}

	if err := s.deps.Streamer.Stop(params.Name); err != nil {
		return s.toolError("stopStreaming", err), nil
	}
	return toolJSON(map[string]string{"stopped": params.Name}), nil
}
