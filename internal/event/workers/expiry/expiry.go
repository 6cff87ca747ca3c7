// Package expiry closes open events once their claim window has ended.
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	eventmetrics "solmeet/internal/event/metrics"
	"solmeet/pkg/requestcontext"
)

// Expirer closes ended events in batches.
type Expirer interface {
	ExpireEnded(ctx context.Context, limit int) (int, error)
}

// Service periodically sweeps ended events.
type Service struct {
	expirer   Expirer
	interval  time.Duration
	batchSize int
	clock     func() time.Time
	logger    *slog.Logger
	metrics   *eventmetrics.Metrics
}

// Option configures Service.
type Option func(*Service)

// WithInterval overrides the sweep interval when greater than zero.
func WithInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithBatchSize bounds how many events one pass may close.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *eventmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(expirer Expirer, opts ...Option) (*Service, error) {
	if expirer == nil {
		return nil, fmt.Errorf("expirer is required")
	}
	svc := &Service{
		expirer:   expirer,
		interval:  30 * time.Second,
		batchSize: 100,
		clock:     time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs the sweep periodically until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.metrics.IncrementSweepFailure()
				s.logger.ErrorContext(ctx, "event expiry sweep failed", "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce drains ended events batch by batch and returns the total closed.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	ctx = requestcontext.WithTime(ctx, s.clock())
	total := 0
	for {
		n, err := s.expirer.ExpireEnded(ctx, s.batchSize)
		total += n
		if err != nil {
			return total, fmt.Errorf("expire ended events: %w", err)
		}
		if n < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.logger.InfoContext(ctx, "closed ended events", "count", total)
	}
	return total, nil
}
