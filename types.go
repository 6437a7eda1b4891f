package beep

import "time"

// Product is a canonical product record owned by the backend.
// Price is a decimal string in dollars (e.g. "19.99").
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Description string    `json:"description,omitempty"`
	Hidden      bool      `json:"hidden,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateProductPayload describes a product to create
type CreateProductPayload struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	// Hidden marks products created as a side effect of checkout so they
	// don't show up in storefront listings unless the caller opts in.
	Hidden bool `json:"hidden,omitempty"`
}

// PaymentItem is one line of a payment session request
type PaymentItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreatePaymentRequest asks the backend to open a payment session
type CreatePaymentRequest struct {
	Items []PaymentItem `json:"items"`
	Label string        `json:"label,omitempty"`
}

// PaymentRequest is the backend's payment session record
type PaymentRequest struct {
	ReferenceKey       string    `json:"referenceKey"`
	PaymentURL         string    `json:"paymentUrl"`
	QRCode             string    `json:"qrCode,omitempty"`
	DestinationAddress string    `json:"destinationAddress"`
	TotalAmount        string    `json:"totalAmount"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

// InvoiceStatus is the server-side settlement state of a session
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceFailed  InvoiceStatus = "failed"
	InvoiceExpired InvoiceStatus = "expired"
)

// Invoice reports the settlement state of a payment session
type Invoice struct {
	ReferenceKey string        `json:"referenceKey"`
	Status       InvoiceStatus `json:"status"`
	Transaction  string        `json:"transaction,omitempty"`
	TotalAmount  string        `json:"totalAmount"`
	PaidAt       *time.Time    `json:"paidAt,omitempty"`
}

// HealthStatus is the backend health check response
type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// apiErrorBody is the backend's wire error envelope
type apiErrorBody struct {
	Error struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}
