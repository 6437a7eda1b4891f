package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	beep "github.com/beep-labs/beep-go"
)

// Streamer runs named streaming checkouts: a cancellable loop that opens a
// fresh payment session per tick until stopped. Cancellation is cooperative,
// checked between ticks, so stopping never interrupts an in-flight request.
type Streamer struct {
	flow   *Flow
	logger *zap.Logger

	mu      sync.Mutex
	streams map[string]context.CancelFunc
}

// NewStreamer creates a streamer on top of a checkout flow
func NewStreamer(flow *Flow, logger *zap.Logger) *Streamer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Streamer{
		flow:    flow,
		logger:  logger,
		streams: make(map[string]context.CancelFunc),
	}
}

// Start begins a streaming checkout under the given name. Each tick
// invalidates the prior session and opens a new one. Returns a validation
// error if the name is already streaming.
func (s *Streamer) Start(ctx context.Context, name string, refs []AssetReference, label string, interval time.Duration) error {
	if name == "" {
		return beep.NewError(beep.ErrCodeValidation, "stream name is required", nil)
	}
	if interval <= 0 {
		return beep.NewError(beep.ErrCodeValidation, "stream interval must be positive", nil)
	}

	s.mu.Lock()
	if _, exists := s.streams[name]; exists {
		s.mu.Unlock()
		return beep.NewError(beep.ErrCodeValidation, "stream "+name+" is already running", nil)
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s.streams[name] = cancel
	s.mu.Unlock()

	go s.run(streamCtx, name, refs, label, interval)
	return nil
}

// Stop cancels a running stream. Returns a not-found error for unknown names.
func (s *Streamer) Stop(name string) error {
	s.mu.Lock()
	cancel, exists := s.streams[name]
	if exists {
		delete(s.streams, name)
	}
	s.mu.Unlock()

	if !exists {
		return beep.NewError(beep.ErrCodeNotFound, "no stream named "+name, nil)
	}
	cancel()
	return nil
}

// StopAll cancels every running stream
func (s *Streamer) StopAll() {
	s.mu.Lock()
	for name, cancel := range s.streams {
		cancel()
		delete(s.streams, name)
	}
	s.mu.Unlock()
}

// Active lists the names of running streams
func (s *Streamer) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	return names
}

func (s *Streamer) run(ctx context.Context, name string, refs []AssetReference, label string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.flow.Invalidate(ctx, refs, label); err != nil {
			s.logger.Warn("stream invalidation failed", zap.String("stream", name), zap.Error(err))
		}
		setup, err := s.flow.RequestPayment(ctx, refs, label)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("stream payment failed", zap.String("stream", name), zap.Error(err))
		} else {
			s.logger.Info("stream payment session opened",
				zap.String("stream", name),
				zap.String("reference_key", setup.ReferenceKey))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
