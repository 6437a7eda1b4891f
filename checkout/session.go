package checkout

import (
	"context"
	"encoding/base64"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
)

// PaymentAPI is the slice of the Beep API the initiator needs
type PaymentAPI interface {
	CreatePayment(ctx context.Context, req beep.CreatePaymentRequest) (*beep.PaymentRequest, error)
}

// PaymentSetup is the per-checkout-attempt aggregate handed to the UI and
// the settlement layer. It is never mutated in place; a re-fetch replaces it.
type PaymentSetup struct {
	ReferenceKey       string          `json:"referenceKey"`
	PaymentURL         string          `json:"paymentUrl"`
	QRCode             string          `json:"qrCode,omitempty"`
	DestinationAddress string          `json:"destinationAddress"`
	TotalAmount        string          `json:"totalAmount"`
	TotalBaseUnits     uint64          `json:"totalBaseUnits"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	ProcessedAssets    []ResolvedAsset `json:"processedAssets"`
}

// Initiator creates payment sessions, deduplicating identical checkout
// inputs through a content-addressed cache for a bounded window.
type Initiator struct {
	api        PaymentAPI
	credential string
	cache      *sessionCache
	logger     *zap.Logger
}

// InitiatorOption configures the initiator
type InitiatorOption func(*Initiator)

// WithSessionTTL overrides the session reuse window
func WithSessionTTL(ttl time.Duration) InitiatorOption {
	return func(i *Initiator) {
		i.cache = newSessionCache(ttl)
	}
}

// WithInitiatorLogger sets a structured logger
func WithInitiatorLogger(l *zap.Logger) InitiatorOption {
	return func(i *Initiator) {
		i.logger = l
	}
}

// NewInitiator creates a payment session initiator. The credential is part
// of the cache key so sessions are never shared across accounts.
func NewInitiator(api PaymentAPI, credential string, opts ...InitiatorOption) *Initiator {
	i := &Initiator{
		api:        api,
		credential: credential,
		cache:      newSessionCache(DefaultSessionTTL),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Setup returns a payment session for the resolved asset list, reusing a
// previously created one when an identical setup ran inside the cache
// window. Concurrent identical calls trigger exactly one backend call.
func (i *Initiator) Setup(ctx context.Context, assets []ResolvedAsset, label string) (*PaymentSetup, error) {
	if len(assets) == 0 {
		return nil, beep.NewError(beep.ErrCodeValidation, "at least one resolved asset is required", nil)
	}

	key := sessionKey(assets, label, i.credential)

	for {
		status, cached, done := i.cache.checkAndMark(key)
		switch status {
		case statusCached:
			i.logger.Debug("reusing payment session", zap.String("reference_key", cached.ReferenceKey))
			return cached, nil
		case statusInFlight:
			result, err := i.cache.waitForResult(ctx, key, done)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
			// In-flight attempt failed; loop and try creating ourselves.
			continue
		}

		setup, err := i.create(ctx, assets, label)
		if err != nil {
			i.cache.fail(key, done)
			return nil, err
		}
		i.cache.complete(key, setup, done)
		return setup, nil
	}
}

// Invalidate drops the cached session for the given inputs
func (i *Initiator) Invalidate(assets []ResolvedAsset, label string) {
	i.cache.invalidate(sessionKey(assets, label, i.credential))
}

// Refetch forces a fresh session regardless of the cache window
func (i *Initiator) Refetch(ctx context.Context, assets []ResolvedAsset, label string) (*PaymentSetup, error) {
	i.Invalidate(assets, label)
	return i.Setup(ctx, assets, label)
}

func (i *Initiator) create(ctx context.Context, assets []ResolvedAsset, label string) (*PaymentSetup, error) {
	req := beep.CreatePaymentRequest{Label: label}
	var totalBaseUnits uint64
	for _, asset := range assets {
		req.Items = append(req.Items, beep.PaymentItem{
			ProductID: asset.ProductID,
			Quantity:  asset.Quantity,
		})
		totalBaseUnits += asset.UnitPrice * uint64(asset.Quantity)
	}

	payment, err := i.api.CreatePayment(ctx, req)
	if err != nil {
		i.logger.Warn("payment session creation failed", zap.Error(err))
		return nil, err
	}

	setup := &PaymentSetup{
		ReferenceKey:       payment.ReferenceKey,
		PaymentURL:         payment.PaymentURL,
		QRCode:             payment.QRCode,
		DestinationAddress: payment.DestinationAddress,
		TotalAmount:        payment.TotalAmount,
		TotalBaseUnits:     totalBaseUnits,
		ExpiresAt:          payment.ExpiresAt,
		ProcessedAssets:    assets,
	}

	// Render a QR locally when the backend omits one
	if setup.QRCode == "" && setup.PaymentURL != "" {
		if png, err := qrcode.Encode(setup.PaymentURL, qrcode.Medium, 256); err == nil {
			setup.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		} else {
			i.logger.Warn("qr generation failed", zap.Error(err))
		}
	}

	i.logger.Info("payment session created",
		zap.String("reference_key", setup.ReferenceKey),
		zap.String("total", setup.TotalAmount))

	return setup, nil
}
