// Package checkout composes the Beep payment flow: asset resolution,
// payment-session initiation with bounded reuse, and streaming checkouts.
package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/beep-labs/beep-go/money"
)

// Flow wires the resolver and initiator into the one-call checkout used by
// the CLI and the MCP tools: resolve references, open (or reuse) a session,
// hand back everything the caller needs to display or settle.
type Flow struct {
	resolver  *Resolver
	initiator *Initiator
	decimals  int32
	logger    *zap.Logger
}

// NewFlow creates a checkout flow
func NewFlow(resolver *Resolver, initiator *Initiator, decimals int32, opts ...FlowOption) *Flow {
	f := &Flow{
		resolver:  resolver,
		initiator: initiator,
		decimals:  decimals,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FlowOption configures the flow
type FlowOption func(*Flow)

// WithFlowLogger sets a structured logger
func WithFlowLogger(l *zap.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = l
	}
}

// RequestPayment resolves the asset list and opens a payment session.
// Identical inputs inside the cache window reuse the prior session.
func (f *Flow) RequestPayment(ctx context.Context, refs []AssetReference, label string) (*PaymentSetup, error) {
	resolution, err := f.resolver.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}

	if resolution.CreatedProducts {
		f.logger.Info("checkout created product records as a side effect")
	}

	setup, err := f.initiator.Setup(ctx, resolution.Assets, label)
	if err != nil {
		return nil, err
	}

	// The backend total is authoritative for display, but an empty one is
	// filled from our own base-unit arithmetic.
	if setup.TotalAmount == "" {
		setup.TotalAmount = money.FromBaseUnits(resolution.TotalBaseUnits, f.decimals).String()
	}

	return setup, nil
}

// Invalidate drops any cached session for the given references
func (f *Flow) Invalidate(ctx context.Context, refs []AssetReference, label string) error {
	resolution, err := f.resolver.Resolve(ctx, refs)
	if err != nil {
		return err
	}
	f.initiator.Invalidate(resolution.Assets, label)
	return nil
}
