package service

import (
	"log/slog"
	"time"

	claimmetrics "solmeet/internal/claim/metrics"
	"solmeet/internal/claim/tracer"
	"solmeet/pkg/platform/circuit"
)

const defaultLedgerTimeout = 2 * time.Second

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *claimmetrics.Metrics
	tracer         tracer.Tracer
	breaker        *circuit.Breaker
	ledgerTimeout  time.Duration
}

// Option configures the service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *claimmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithBreaker guards ledger calls. Without one every call is attempted.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *serviceConfig) {
		c.breaker = b
	}
}

// WithLedgerTimeout bounds each ledger call. Default 2s.
func WithLedgerTimeout(d time.Duration) Option {
	return func(c *serviceConfig) {
		if d > 0 {
			c.ledgerTimeout = d
		}
	}
}
