package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"solmeet/internal/audit"
	"solmeet/internal/credential"
	"solmeet/internal/event/models"
	"solmeet/internal/event/service"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/httputil"
	"solmeet/pkg/requestcontext"
)

// Service defines the event registry operations the handler needs.
type Service interface {
	CreateEvent(ctx context.Context, organizer domain.Identity, cmd service.CreateEventCommand) (*models.Event, error)
	GetEventStatus(ctx context.Context, id domain.EventID) (*service.EventStatus, error)
	ListEvents(ctx context.Context, organizer domain.Identity) ([]*models.Event, error)
	PublishEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error)
	CloseEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error)
	CancelEvent(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error)
	IssueCredentials(ctx context.Context, caller domain.Identity, id domain.EventID, cmd service.IssueCredentialsCommand) ([]*credential.ClaimCredential, error)
	ListAuditTrail(ctx context.Context, caller domain.Identity, id domain.EventID, limit int) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic registers routes that need no caller identity.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/events/{id}", h.HandleGetEvent)
}

// Register registers organizer routes. The router must authenticate the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/events", h.HandleCreateEvent)
	r.Get("/me/events", h.HandleListMyEvents)
	r.Post("/events/{id}/publish", h.HandlePublishEvent)
	r.Post("/events/{id}/close", h.HandleCloseEvent)
	r.Post("/events/{id}/cancel", h.HandleCancelEvent)
	r.Post("/events/{id}/credentials", h.HandleIssueCredentials)
	r.Get("/events/{id}/audit", h.HandleListAudit)
}

func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateEventRequest](w, r, h.logger)
	if !ok {
		return
	}

	event, err := h.service.CreateEvent(ctx, caller, req.ToCommand())
	if err != nil {
		h.logFailure(ctx, "create event failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toEventResponse(event))
}

// HandleGetEvent returns the event with its committed claim count.
func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetEventStatus(ctx, eventID)
	if err != nil {
		h.logFailure(ctx, "get event failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventStatusResponse(status))
}

func (h *Handler) HandleListMyEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	events, err := h.service.ListEvents(ctx, caller)
	if err != nil {
		h.logFailure(ctx, "list events failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventListResponse(events))
}

func (h *Handler) HandlePublishEvent(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "publish", h.service.PublishEvent)
}

func (h *Handler) HandleCloseEvent(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "close", h.service.CloseEvent)
}

func (h *Handler) HandleCancelEvent(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "cancel", h.service.CancelEvent)
}

type transitionFunc func(ctx context.Context, caller domain.Identity, id domain.EventID) (*models.Event, error)

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, name string, fn transitionFunc) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	event, err := fn(ctx, caller, eventID)
	if err != nil {
		h.logFailure(ctx, name+" event failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toEventResponse(event))
}

func (h *Handler) HandleIssueCredentials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[IssueCredentialsRequest](w, r, h.logger)
	if !ok {
		return
	}

	creds, err := h.service.IssueCredentials(ctx, caller, eventID, req.ToCommand())
	if err != nil {
		h.logFailure(ctx, "issue credentials failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toIssueCredentialsResponse(eventID.String(), creds))
}

// HandleListAudit returns the event's audit trail to its organizer. An
// optional ?limit=N keeps the N most recent entries.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	trail, err := h.service.ListAuditTrail(ctx, caller, eventID, limit)
	if err != nil {
		h.logFailure(ctx, "list audit trail failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAuditTrailResponse(eventID.String(), trail))
}

func (h *Handler) requireCaller(w http.ResponseWriter, ctx context.Context) (domain.Identity, bool) {
	caller, ok := requestcontext.Caller(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "caller identity required"))
		return domain.Identity{}, false
	}
	return caller, true
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (domain.EventID, bool) {
	eventID, err := domain.ParseEventID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return domain.EventID{}, false
	}
	return eventID, true
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err, "request_id", requestcontext.RequestID(ctx))
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
