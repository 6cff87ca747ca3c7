// Package service implements the claim validator: it decides whether a
// presented credential earns its holder a proof of attendance and, if so,
// commits the proof through the issuance gateway.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"solmeet/internal/audit"
	claimmetrics "solmeet/internal/claim/metrics"
	"solmeet/internal/claim/tracer"
	"solmeet/internal/credential"
	eventmodels "solmeet/internal/event/models"
	ledgermodels "solmeet/internal/ledger/models"
	ledgerstore "solmeet/internal/ledger/store"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/circuit"
	"solmeet/pkg/platform/sentinel"
	"solmeet/pkg/requestcontext"
)

const (
	outcomeAccepted = "accepted"
	// outcomeError labels failures outside the claim taxonomy.
	outcomeError = "error"
)

type Service struct {
	events        EventReader
	verifier      Verifier
	ledger        Ledger
	gateway       Gateway
	logger        *slog.Logger
	auditor       AuditPublisher
	metrics       *claimmetrics.Metrics
	tracer        tracer.Tracer
	breaker       *circuit.Breaker
	ledgerTimeout time.Duration
}

func New(events EventReader, verifier Verifier, ledger Ledger, gateway Gateway, opts ...Option) *Service {
	cfg := &serviceConfig{
		tracer:        tracer.NewNoop(),
		ledgerTimeout: defaultLedgerTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		events:        events,
		verifier:      verifier,
		ledger:        ledger,
		gateway:       gateway,
		logger:        cfg.logger,
		auditor:       cfg.auditPublisher,
		metrics:       cfg.metrics,
		tracer:        cfg.tracer,
		breaker:       cfg.breaker,
		ledgerTimeout: cfg.ledgerTimeout,
	}
}

// PresentClaim redeems credentialText for claimant at the request time.
// Checks run in a fixed order and stop at the first failure; nothing is
// written unless every check passes.
func (s *Service) PresentClaim(ctx context.Context, claimant domain.Identity, credentialText string) (*ledgermodels.Entry, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPresentClaim,
		tracer.String(tracer.AttrClaimant, tracer.HashClaimant(claimant.Key())),
	)

	var eventID domain.EventID
	entry, err := s.presentClaim(ctx, claimant, credentialText, &eventID)

	outcome := outcomeAccepted
	if err != nil {
		outcome = outcomeError
		if code := dErrors.CodeOf(err); code.IsClaimRejection() {
			outcome = string(code)
		}
	}
	span.SetAttributes(
		tracer.String(tracer.AttrEventID, eventID.String()),
		tracer.String(tracer.AttrOutcome, outcome),
		tracer.Bool(tracer.AttrRetryable, dErrors.Retryable(err)),
	)
	s.metrics.IncrementOutcome(outcome)
	s.recordOutcome(ctx, span, eventID, claimant, outcome, err)
	span.End(err)

	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) presentClaim(ctx context.Context, claimant domain.Identity, text string, eventID *domain.EventID) (*ledgermodels.Entry, error) {
	if claimant.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "claimant identity required")
	}

	cred, err := credential.DecodeText(text)
	if err != nil {
		return nil, err
	}
	*eventID = cred.EventID

	if err := s.verify(ctx, cred); err != nil {
		return nil, err
	}
	if !cred.BindsTo(claimant) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "credential is bound to another attendee")
	}

	event, err := s.events.FindByID(ctx, cred.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnknownEvent, "credential names an unknown event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if !event.IsOpen() {
		return nil, dErrors.New(dErrors.CodeEventClosed, "event is not accepting claims")
	}

	presentedAt := requestcontext.Now(ctx)
	if !claimWindowContains(event.Window, cred.ExpiresAt, presentedAt) {
		return nil, dErrors.New(dErrors.CodeExpired, "credential presented outside its validity window")
	}

	if event.HasCapacity() {
		if err := s.precheckCapacity(ctx, event, cred, claimant); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "claim aborted before commit")
	}
	return s.commit(ctx, event, ledgermodels.ClaimRecord{
		EventID:    cred.EventID,
		Claimant:   claimant,
		Nonce:      cred.Nonce,
		ConsumedAt: presentedAt,
	})
}

func (s *Service) verify(ctx context.Context, cred *credential.ClaimCredential) error {
	_, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.Bool(tracer.AttrHinted, cred.HasSubjectHint()),
	)
	err := s.verifier.Verify(cred)
	span.End(err)
	return err
}

// claimWindowContains reports whether at lies in
// [window.Start, min(expiry, window.End)], upper bound inclusive.
func claimWindowContains(window eventmodels.Window, expiry, at time.Time) bool {
	upper := window.End
	if expiry.Before(upper) {
		upper = expiry
	}
	return !at.Before(window.Start) && !at.After(upper)
}

// precheckCapacity rejects early when the event is already full. A claimant
// who is already on the ledger is told so rather than that the event is full.
func (s *Service) precheckCapacity(ctx context.Context, event *eventmodels.Event, cred *credential.ClaimCredential, claimant domain.Identity) error {
	var claimed int
	err := s.ledgerCall(ctx, "count", func(ctx context.Context) error {
		var err error
		claimed, err = s.ledger.CountByEvent(ctx, event.ID)
		return err
	})
	if err != nil {
		return err
	}
	if claimed < event.Capacity {
		return nil
	}

	held, err := s.alreadyOnLedger(ctx, event.ID, cred.Nonce, claimant)
	if err != nil {
		return err
	}
	if held {
		return dErrors.New(dErrors.CodeAlreadyClaimed, "credential or claimant already redeemed for this event")
	}
	return dErrors.New(dErrors.CodeCapacityExceeded, "event has reached capacity")
}

func (s *Service) alreadyOnLedger(ctx context.Context, eventID domain.EventID, nonce domain.Nonce, claimant domain.Identity) (bool, error) {
	err := s.ledgerCall(ctx, "find_nonce", func(ctx context.Context) error {
		_, err := s.ledger.FindByNonce(ctx, eventID, nonce)
		return err
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, err
	}

	err = s.ledgerCall(ctx, "find_claimant", func(ctx context.Context) error {
		_, err := s.ledger.FindByClaimant(ctx, eventID, claimant)
		return err
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return false, err
	}
	return false, nil
}

func (s *Service) commit(ctx context.Context, event *eventmodels.Event, record ledgermodels.ClaimRecord) (*ledgermodels.Entry, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanLedgerCommit,
		tracer.Int64(tracer.AttrCapacity, int64(event.Capacity)),
	)
	var entry ledgermodels.Entry
	err := s.ledgerCall(ctx, "commit", func(ctx context.Context) error {
		var err error
		entry, err = s.gateway.Commit(ctx, record, event.Capacity)
		return err
	})
	err = translateCommitErr(err)
	span.End(err)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func translateCommitErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledgerstore.ErrNonceConsumed), errors.Is(err, ledgerstore.ErrAlreadyClaimed):
		return dErrors.New(dErrors.CodeAlreadyClaimed, "credential or claimant already redeemed for this event")
	case errors.Is(err, ledgerstore.ErrCapacityReached):
		return dErrors.New(dErrors.CodeCapacityExceeded, "event has reached capacity")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit claim")
}

// ListClaims returns every committed claim for an event. Organizer only.
func (s *Service) ListClaims(ctx context.Context, caller domain.Identity, eventID domain.EventID) ([]ledgermodels.Entry, error) {
	event, err := s.requireEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the organizer can list claims")
	}

	var entries []ledgermodels.Entry
	err = s.ledgerCall(ctx, "list", func(ctx context.Context) error {
		var err error
		entries, err = s.ledger.ListByEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetMyProof returns the caller's own claim for an event.
func (s *Service) GetMyProof(ctx context.Context, caller domain.Identity, eventID domain.EventID) (*ledgermodels.Entry, error) {
	if caller.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if _, err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	var entry *ledgermodels.Entry
	err := s.ledgerCall(ctx, "find_claimant", func(ctx context.Context) error {
		var err error
		entry, err = s.ledger.FindByClaimant(ctx, eventID, caller)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "no proof for this event")
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) requireEvent(ctx context.Context, eventID domain.EventID) (*eventmodels.Event, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "event ID required")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return event, nil
}

func (s *Service) recordOutcome(ctx context.Context, span tracer.Span, eventID domain.EventID, claimant domain.Identity, outcome string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		if err == nil {
			s.logger.InfoContext(ctx, "claim accepted",
				"event_id", eventID.String(),
				"claimant", claimant.Key(),
				"request_id", requestID,
				"log_type", "audit",
			)
		} else {
			s.logger.WarnContext(ctx, "claim rejected",
				"event_id", eventID.String(),
				"reason", outcome,
				"request_id", requestID,
				"error", err,
			)
		}
	}
	// claims that never named an event have nothing to attach to
	if s.auditor == nil || eventID.IsNil() {
		return
	}

	action, result := audit.ActionClaimAccepted, "success"
	if err != nil {
		action, result = audit.ActionClaimRejected, "failure"
	}
	if emitErr := s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		EventID:   eventID.String(),
		Actor:     claimant.Key(),
		Action:    action,
		Outcome:   result,
		Reason:    outcome,
		RequestID: requestID,
		Device:    requestcontext.Device(ctx),
	}); emitErr != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to emit audit event", "action", action, "error", emitErr)
		}
		return
	}
	span.AddEvent(tracer.EventAuditEmitted, tracer.String(tracer.AttrOutcome, outcome))
}
