package service

import (
	"log/slog"
	"time"

	eventmetrics "solmeet/internal/event/metrics"
)

const (
	defaultCredentialTTL = 24 * time.Hour
	defaultExpiryBatch   = 100
)

// serviceConfig holds optional dependencies for the service.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	auditReader    AuditReader
	metrics        *eventmetrics.Metrics
	credentialTTL  time.Duration
	maxBatch       int
	claimCounter   ClaimCounter
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

// WithAuditReader enables ListAuditTrail. Without it the trail reads empty.
func WithAuditReader(reader AuditReader) Option {
	return func(c *serviceConfig) {
		c.auditReader = reader
	}
}

func WithMetrics(m *eventmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithCredentialTTL sets the default lifetime of minted credentials.
// Non-positive values keep the 24h default.
func WithCredentialTTL(ttl time.Duration) Option {
	return func(c *serviceConfig) {
		if ttl > 0 {
			c.credentialTTL = ttl
		}
	}
}

// WithMaxBatch caps credentials per issuance request.
func WithMaxBatch(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.maxBatch = n
		}
	}
}

// WithClaimCounter lets GetEventStatus report committed claims.
func WithClaimCounter(counter ClaimCounter) Option {
	return func(c *serviceConfig) {
		c.claimCounter = counter
	}
}
