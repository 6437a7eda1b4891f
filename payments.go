package beep

import (
	"context"
	"net/url"

	"github.com/google/uuid"
)

// CreatePayment opens a payment session for the given items.
// An idempotency key is attached so the backend can drop duplicate
// submissions; the call itself is never retried by this layer.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*PaymentRequest, error) {
	if len(req.Items) == 0 {
		return nil, NewError(ErrCodeValidation, "at least one payment item is required", nil)
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return nil, NewError(ErrCodeValidation, "payment item is missing a product id", nil)
		}
		if item.Quantity < 1 {
			return nil, NewError(ErrCodeValidation, "payment item quantity must be at least 1", nil)
		}
	}

	headers := map[string]string{
		"X-Idempotency-Key": uuid.NewString(),
	}

	var payment PaymentRequest
	if err := c.post(ctx, "/v1/payments", req, &payment, headers); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetInvoice fetches the settlement state of a payment session
func (c *Client) GetInvoice(ctx context.Context, referenceKey string) (*Invoice, error) {
	if referenceKey == "" {
		return nil, NewError(ErrCodeValidation, "reference key is required", nil)
	}

	var invoice Invoice
	if err := c.get(ctx, "/v1/invoices/"+url.PathEscape(referenceKey), &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Health checks backend availability
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.get(ctx, "/v1/health", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
