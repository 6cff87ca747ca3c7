package service

import (
	"context"
	"errors"
	"time"

	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/sentinel"
)

// ledgerCall runs fn under the circuit breaker and the per-call timeout.
// Conflicts and misses are answers from a healthy ledger; anything else is
// reported as retryable unavailability.
func (s *Service) ledgerCall(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.breaker != nil && !s.breaker.Allow() {
		return dErrors.New(dErrors.CodeLedgerUnavailable, "ledger circuit open")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.ledgerTimeout)
	defer cancel()
	start := time.Now()
	err := fn(callCtx)
	s.metrics.ObserveLedgerCall(op, time.Since(start))

	if !isLedgerFailure(err) {
		s.recordLedgerHealth(ctx, true)
		return err
	}
	// a caller that hung up says nothing about ledger health
	if ctx.Err() == nil {
		s.recordLedgerHealth(ctx, false)
	} else if s.breaker != nil {
		s.breaker.Abandon()
	}
	return &dErrors.Error{Code: dErrors.CodeLedgerUnavailable, Message: "ledger unavailable", Err: err}
}

func isLedgerFailure(err error) bool {
	if err == nil || errors.Is(err, sentinel.ErrConflict) || errors.Is(err, sentinel.ErrNotFound) {
		return false
	}
	var de *dErrors.Error
	return !errors.As(err, &de)
}

func (s *Service) recordLedgerHealth(ctx context.Context, ok bool) {
	if s.breaker == nil {
		return
	}
	if ok {
		if change := s.breaker.RecordSuccess(); change.Closed {
			s.metrics.IncrementBreakerTransition("closed")
			if s.logger != nil {
				s.logger.InfoContext(ctx, "ledger circuit closed", "breaker", s.breaker.Name())
			}
		}
		return
	}
	if change := s.breaker.RecordFailure(); change.Opened {
		s.metrics.IncrementBreakerTransition("open")
		if s.logger != nil {
			s.logger.WarnContext(ctx, "ledger circuit opened", "breaker", s.breaker.Name())
		}
	}
}
