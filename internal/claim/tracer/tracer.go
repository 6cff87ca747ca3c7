// Package tracer is the claim pipeline's tracing port. The service emits
// spans through this interface so tests run with the no-op tracer and
// production plugs in OpenTelemetry.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span is an active trace span. End must be called exactly once.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashClaimant shortens a claimant key to a correlation id so spans never
// carry wallet addresses or provider tokens.
func HashClaimant(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

// Span names.
const (
	SpanPresentClaim = "claim.present"
	SpanVerify       = "claim.verify"
	SpanLedgerCommit = "claim.ledger.commit"
)

// Attribute keys.
const (
	AttrEventID   = "event.id"
	AttrClaimant  = "claimant.hash"
	AttrOutcome   = "claim.outcome"
	AttrHinted    = "credential.hinted"
	AttrCapacity  = "event.capacity"
	AttrClaimed   = "event.claimed"
	AttrRetryable = "retryable"
)

// Span events.
const (
	EventCapacityPrecheck = "capacity.precheck"
	EventAuditEmitted     = "audit.emitted"
)
