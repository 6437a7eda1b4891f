package mcpserver

import "github.com/beep-labs/beep-go/checkout"

// Tool parameter shapes. Arguments arrive as JSON from the MCP client and
// are decoded into these before any work happens.

type listProductsParams struct {
	Name string `json:"name,omitempty"`
}

type createProductParams struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
}

type issuePaymentParams struct {
	Assets []checkout.AssetReference `json:"assets"`
	Label  string                    `json:"label,omitempty"`
}

type purchaseParams struct {
	Assets []checkout.AssetReference `json:"assets"`
	Label  string                    `json:"label,omitempty"`
}

type paymentStatusParams struct {
	ReferenceKey string `json:"referenceKey,omitempty"`
	Transaction  string `json:"transaction,omitempty"`
}

type startStreamingParams struct {
	Name            string                    `json:"name"`
	Assets          []checkout.AssetReference `json:"assets"`
	Label           string                    `json:"label,omitempty"`
	IntervalSeconds int                       `json:"intervalSeconds,omitempty"`
}

type stopStreamingParams struct {
	Name string `json:"name"`
}

// purchaseResult is the envelope returned by requestAndPurchaseAsset
type purchaseResult struct {
	Setup       *checkout.PaymentSetup `json:"setup"`
	Transaction string                 `json:"transaction,omitempty"`
	Status      string                 `json:"status,omitempty"`
}
