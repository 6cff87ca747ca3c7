// Package service implements the event registry: organizer-owned events, their
// lifecycle and the minting of claim credentials against them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"solmeet/internal/audit"
	"solmeet/internal/credential"
	eventmetrics "solmeet/internal/event/metrics"
	"solmeet/internal/event/models"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/validation"
	"solmeet/pkg/requestcontext"
)

// systemActor is recorded for transitions nobody requested.
const systemActor = "system:expiry"

// Service orchestrates event lifecycle management.
type Service struct {
	events        Store
	keyring       *credential.Keyring
	auditEmitter  *auditEmitter
	auditLog      AuditReader
	metrics       *eventmetrics.Metrics
	logger        *slog.Logger
	claims        ClaimCounter
	credentialTTL time.Duration
	maxBatch      int
}

func New(events Store, keyring *credential.Keyring, opts ...Option) *Service {
	cfg := &serviceConfig{
		credentialTTL: defaultCredentialTTL,
		maxBatch:      validation.MaxCredentialBatch,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		events:        events,
		keyring:       keyring,
		auditEmitter:  newAuditEmitter(cfg.logger, cfg.auditPublisher),
		auditLog:      cfg.auditReader,
		metrics:       cfg.metrics,
		logger:        cfg.logger,
		claims:        cfg.claimCounter,
		credentialTTL: cfg.credentialTTL,
		maxBatch:      cfg.maxBatch,
	}
}

// CreateEventCommand is the organizer's creation input.
type CreateEventCommand struct {
	Title       string
	Description string
	Venue       string
	WindowStart time.Time
	WindowEnd   time.Time
	Capacity    int
	Draft       bool
}

func (c *CreateEventCommand) normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Venue = strings.TrimSpace(c.Venue)
}

func (c *CreateEventCommand) validate() error {
	if c.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if err := validation.CheckStringLength("title", c.Title, validation.MaxTitleLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("description", c.Description, validation.MaxDescriptionLength); err != nil {
		return err
	}
	if err := validation.CheckStringLength("venue", c.Venue, validation.MaxVenueLength); err != nil {
		return err
	}
	if c.Capacity < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacity must be positive when set")
	}
	return nil
}

// CreateEvent registers a new event owned by organizer.
func (s *Service) CreateEvent(ctx context.Context, organizer domain.Identity, cmd CreateEventCommand) (*models.Event, error) {
	if err := requireCaller(organizer); err != nil {
		return nil, err
	}
	cmd.normalize()
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	window, err := models.NewWindow(cmd.WindowStart, cmd.WindowEnd, now)
	if err != nil {
		return nil, err
	}

	eventID, err := domain.NewEventID()
	if err != nil {
		return nil, err
	}
	event, err := models.NewEvent(models.NewEventParams{
		ID:          eventID,
		Organizer:   organizer,
		Title:       cmd.Title,
		Description: cmd.Description,
		Venue:       cmd.Venue,
		Window:      window,
		Capacity:    cmd.Capacity,
		Draft:       cmd.Draft,
	}, now)
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, wrapEventErr(err, "failed to create event")
	}

	s.auditEmitter.emit(ctx, audit.ActionEventCreated, event.ID, organizer.Key(), string(event.Status))
	s.metrics.IncrementEventsCreated()
	return event, nil
}

// GetEvent returns the event or a not_found error.
func (s *Service) GetEvent(ctx context.Context, id domain.EventID) (*models.Event, error) {
	if err := requireEventID(id); err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, wrapEventErr(err, "failed to load event")
	}
	return event, nil
}

// EventStatus is an event plus its committed claim count.
type EventStatus struct {
	Event   *models.Event
	Claimed int
}

// Remaining returns the open seats, or -1 when capacity is unlimited.
func (st *EventStatus) Remaining() int {
	if !st.Event.HasCapacity() {
		return -1
	}
	return max(st.Event.Capacity-st.Claimed, 0)
}

// GetEventStatus loads the event and its ledger count concurrently.
func (s *Service) GetEventStatus(ctx context.Context, id domain.EventID) (*EventStatus, error) {
	if err := requireEventID(id); err != nil {
		return nil, err
	}
	status := &EventStatus{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		event, err := s.events.FindByID(gctx, id)
		if err != nil {
			return wrapEventErr(err, "failed to load event")
		}
		status.Event = event
		return nil
	})
	if s.claims != nil {
		g.Go(func() error {
			n, err := s.claims.CountByEvent(gctx, id)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, "failed to count claims")
			}
			status.Claimed = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return status, nil
}

// ListEvents returns the organizer's events, oldest first.
func (s *Service) ListEvents(ctx context.Context, organizer domain.Identity) ([]*models.Event, error) {
	if err := requireCaller(organizer); err != nil {
		return nil, err
	}
	events, err := s.events.ListByOrganizer(ctx, organizer)
	if err != nil {
		return nil, wrapEventErr(err, "failed to list events")
	}
	return events, nil
}

// ListAuditTrail returns the organizer's view of an event's audit trail,
// oldest first. A positive limit keeps only the most recent entries.
func (s *Service) ListAuditTrail(ctx context.Context, caller domain.Identity, id domain.EventID, limit int) ([]audit.Event, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the event organizer may read its audit trail")
	}
	if s.auditLog == nil {
		return []audit.Event{}, nil
	}

	trail, err := s.auditLog.ListByEvent(ctx, event.ID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail")
	}
	if limit > 0 && len(trail) > limit {
		trail = trail[len(trail)-limit:]
	}
	return trail, nil
}

// PublishEvent moves a draft to open.
func (s *Service) PublishEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error) {
	return s.transition(ctx, caller, id, models.StatusOpen, audit.ActionEventPublished)
}

// CloseEvent moves an open event to closed. Only the creator may close it.
func (s *Service) CloseEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error) {
	return s.transition(ctx, caller, id, models.StatusClosed, audit.ActionEventClosed)
}

// CancelEvent abandons a draft or open event.
func (s *Service) CancelEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error) {
	return s.transition(ctx, caller, id, models.StatusCancelled, audit.ActionEventCancelled)
}

func (s *Service) transition(ctx context.Context, caller domain.Identity, id domain.EventID, to models.Status, action audit.Action) (*models.Event, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := requireEventID(id); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	event, err := s.events.Execute(ctx, id, func(e *models.Event) error {
		if !e.IsOrganizer(caller) {
			return dErrors.New(dErrors.CodeUnauthorized, "only the event organizer may change its status")
		}
		return e.TransitionTo(to, now)
	})
	if err != nil {
		return nil, wrapEventErr(err, fmt.Sprintf("failed to move event to %s", to))
	}

	s.auditEmitter.emit(ctx, action, event.ID, caller.Key(), "")
	s.metrics.IncrementTransition(string(to))
	return event, nil
}

// ExpireEnded closes up to limit open events whose window is over and
// reports how many were closed.
func (s *Service) ExpireEnded(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultExpiryBatch
	}
	now := requestcontext.Now(ctx)
	candidates, err := s.events.ListOpenEndedBefore(ctx, now, limit)
	if err != nil {
		return 0, wrapEventErr(err, "failed to list ended events")
	}

	expired := 0
	for _, candidate := range candidates {
		changed := false
		_, err := s.events.Execute(ctx, candidate.ID, func(e *models.Event) error {
			changed = e.ExpireIfEnded(now)
			return nil
		})
		if err != nil {
			return expired, wrapEventErr(err, "failed to expire event")
		}
		if changed {
			expired++
			s.auditEmitter.emit(ctx, audit.ActionEventExpired, candidate.ID, systemActor, "window ended")
		}
	}
	s.metrics.AddEventsExpired(expired)
	return expired, nil
}

// IssueCredentialsCommand requests a batch of credentials. When SubjectHints
// is non-empty one credential is minted per hint and Count is ignored.
type IssueCredentialsCommand struct {
	Count        int
	SubjectHints []domain.Identity
	TTL          time.Duration
}

// IssueCredentials mints single-use claim credentials for an event the caller
// organizes. Drafts may be pre-issued; closed or cancelled events may not.
func (s *Service) IssueCredentials(ctx context.Context, caller domain.Identity, id domain.EventID, cmd IssueCredentialsCommand) ([]*credential.ClaimCredential, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	event, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !event.IsOrganizer(caller) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the event organizer may issue credentials")
	}
	if event.Status.IsTerminal() {
		return nil, dErrors.New(dErrors.CodeEventClosed, "event is no longer accepting claims")
	}

	count := cmd.Count
	if len(cmd.SubjectHints) > 0 {
		count = len(cmd.SubjectHints)
	}
	if err := validation.CheckCount("count", count, s.maxBatch); err != nil {
		return nil, err
	}
	ttl := s.credentialTTL
	if cmd.TTL > 0 {
		ttl = cmd.TTL
	}

	now := requestcontext.Now(ctx)
	creds := make([]*credential.ClaimCredential, 0, count)
	for i := 0; i < count; i++ {
		var hint domain.Identity
		if len(cmd.SubjectHints) > 0 {
			hint = cmd.SubjectHints[i]
		}
		cred, err := s.keyring.Issue(credential.IssueParams{
			EventID:     event.ID,
			WindowStart: event.Window.Start,
			WindowEnd:   event.Window.End,
			SubjectHint: hint,
			TTL:         ttl,
			Now:         now,
		})
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}

	s.auditEmitter.emit(ctx, audit.ActionCredentialsIssued, event.ID, caller.Key(), fmt.Sprintf("count=%d", count))
	s.metrics.AddCredentialsIssued(count)
	return creds, nil
}
