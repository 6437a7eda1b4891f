package settlement

import (
	"context"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
)

// Polling defaults; overridable per poller and via environment config.
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 2 * time.Minute
)

// InvoiceAPI is the slice of the Beep API the invoice poller needs
type InvoiceAPI interface {
	GetInvoice(ctx context.Context, referenceKey string) (*beep.Invoice, error)
}

// Poller repeatedly queries finality status at a fixed interval until a
// terminal state or its timeout. No state outlives a call: a fresh Wait
// after a restart just re-queries current status. Cancellation is
// cooperative, checked between ticks.
type Poller struct {
	chain    ChainClient
	invoices InvoiceAPI
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// PollerOption configures the poller
type PollerOption func(*Poller)

// WithPollInterval sets the query interval
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithPollTimeout bounds how long to wait for a terminal state
func WithPollTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.timeout = d
	}
}

// WithPollerLogger sets a structured logger
func WithPollerLogger(l *zap.Logger) PollerOption {
	return func(p *Poller) {
		p.logger = l
	}
}

// WithInvoiceAPI enables invoice polling through the Beep backend
func WithInvoiceAPI(api InvoiceAPI) PollerOption {
	return func(p *Poller) {
		p.invoices = api
	}
}

// NewPoller creates a status poller
func NewPoller(chain ChainClient, opts ...PollerOption) *Poller {
	p := &Poller{
		chain:    chain,
		interval: DefaultPollInterval,
		timeout:  DefaultPollTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls a submitted transaction until confirmed or failed. A timeout
// returns a typed timeout error and issues no further requests.
func (p *Poller) Wait(ctx context.Context, sig solana.Signature) (TxStatus, error) {
	return p.poll(ctx, func(ctx context.Context) (TxStatus, bool, error) {
		status, err := p.chain.SignatureStatus(ctx, sig)
		if err != nil {
			// Transient RPC failures don't end the loop; the next tick
			// re-queries.
			p.logger.Warn("status query failed", zap.Stringer("signature", sig), zap.Error(err))
			return TxPending, false, nil
		}
		return status, status != TxPending, nil
	})
}

// WaitInvoice polls a payment session until the backend reports a terminal
// invoice state.
func (p *Poller) WaitInvoice(ctx context.Context, referenceKey string) (beep.InvoiceStatus, error) {
	if p.invoices == nil {
		return "", beep.NewError(beep.ErrCodeValidation, "no invoice API configured", nil)
	}

	var last beep.InvoiceStatus
	_, err := p.poll(ctx, func(ctx context.Context) (TxStatus, bool, error) {
		invoice, err := p.invoices.GetInvoice(ctx, referenceKey)
		if err != nil {
			if beep.IsNotFound(err) || beep.IsAuthentication(err) {
				return TxFailed, false, err
			}
			p.logger.Warn("invoice query failed", zap.String("reference_key", referenceKey), zap.Error(err))
			return TxPending, false, nil
		}

		last = invoice.Status
		switch invoice.Status {
		case beep.InvoicePaid:
			return TxConfirmed, true, nil
		case beep.InvoiceFailed, beep.InvoiceExpired:
			return TxFailed, true, nil
		default:
			return TxPending, false, nil
		}
	})
	if err != nil {
		return last, err
	}
	return last, nil
}

// poll drives the shared pending → terminal | timeout loop
func (p *Poller) poll(ctx context.Context, check func(context.Context) (TxStatus, bool, error)) (TxStatus, error) {
	deadline := time.Now().Add(p.timeout)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		status, terminal, err := check(ctx)
		if err != nil {
			return status, err
		}
		if terminal {
			return status, nil
		}

		if time.Now().After(deadline) {
			return TxPending, beep.NewError(beep.ErrCodeTimeout,
				"polling timed out before a terminal state", map[string]interface{}{
					"timeout": p.timeout.String(),
				})
		}

		select {
		case <-ctx.Done():
			return TxPending, ctx.Err()
		case <-ticker.C:
		}
	}
}
