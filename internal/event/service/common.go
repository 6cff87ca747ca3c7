package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"solmeet/internal/audit"
	"solmeet/internal/event/models"
	"solmeet/internal/event/store"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/sentinel"
	"solmeet/pkg/requestcontext"
)

// Store is the persistence contract the service depends on.
type Store interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id domain.EventID) (*models.Event, error)
	ListByOrganizer(ctx context.Context, organizer domain.Identity) ([]*models.Event, error)
	ListOpenEndedBefore(ctx context.Context, now time.Time, limit int) ([]*models.Event, error)
	Execute(ctx context.Context, id domain.EventID, mutate store.Mutator) (*models.Event, error)
}

// ClaimCounter reads committed claims from the proof ledger.
type ClaimCounter interface {
	CountByEvent(ctx context.Context, eventID domain.EventID) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// AuditReader serves the recorded trail of one event, oldest first.
type AuditReader interface {
	ListByEvent(ctx context.Context, eventID string) ([]audit.Event, error)
}

func requireEventID(id domain.EventID) error {
	if id.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "event ID required")
	}
	return nil
}

func requireCaller(caller domain.Identity) error {
	if caller.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	return nil
}

// wrapEventErr translates store sentinels. Domain errors raised inside an
// Execute mutator pass through with their code.
func wrapEventErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}

// auditEmitter writes organizer actions to the structured log and the audit trail.
type auditEmitter struct {
	logger    *slog.Logger
	publisher AuditPublisher
}

func newAuditEmitter(logger *slog.Logger, publisher AuditPublisher) *auditEmitter {
	return &auditEmitter{logger: logger, publisher: publisher}
}

func (e *auditEmitter) emit(ctx context.Context, action audit.Action, eventID domain.EventID, actor string, reason string) {
	requestID := requestcontext.RequestID(ctx)
	if e.logger != nil {
		e.logger.InfoContext(ctx, string(action),
			"event_id", eventID.String(),
			"actor", actor,
			"reason", reason,
			"request_id", requestID,
			"log_type", "audit",
		)
	}
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		EventID:   eventID.String(),
		Actor:     actor,
		Action:    action,
		Outcome:   "success",
		Reason:    reason,
		RequestID: requestID,
	}); err != nil && e.logger != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"event_id", eventID.String(),
			"error", err,
		)
	}
}
