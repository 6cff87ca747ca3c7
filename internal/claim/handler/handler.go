package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/httputil"
	"solmeet/pkg/requestcontext"
)

// Service defines the claim operations the handler needs.
type Service interface {
	PresentClaim(ctx context.Context, claimant domain.Identity, credentialText string) (*models.Entry, error)
	ListClaims(ctx context.Context, caller domain.Identity, eventID domain.EventID) ([]models.Entry, error)
	GetMyProof(ctx context.Context, caller domain.Identity, eventID domain.EventID) (*models.Entry, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers claim routes. The router must authenticate the caller.
func (h *Handler) Register(r chi.Router) {
	r.Post("/claims", h.HandlePresentClaim)
	r.Get("/events/{id}/claims", h.HandleListClaims)
	r.Get("/events/{id}/claims/me", h.HandleGetMyProof)
}

func (h *Handler) HandlePresentClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[PresentClaimRequest](w, r, h.logger)
	if !ok {
		return
	}

	entry, err := h.service.PresentClaim(ctx, caller, req.Credential)
	if err != nil {
		// the service already logged the rejection with its reason
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toClaimResponse(entry))
}

func (h *Handler) HandleListClaims(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	entries, err := h.service.ListClaims(ctx, caller, eventID)
	if err != nil {
		h.logFailure(ctx, "list claims failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toClaimListResponse(eventID.String(), entries))
}

func (h *Handler) HandleGetMyProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller, ok := h.requireCaller(w, ctx)
	if !ok {
		return
	}
	eventID, ok := h.eventID(w, r)
	if !ok {
		return
	}

	entry, err := h.service.GetMyProof(ctx, caller, eventID)
	if err != nil {
		h.logFailure(ctx, "get proof failed", err, "event_id", eventID.String())
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toClaimResponse(entry))
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

func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err, "request_id", requestcontext.RequestID(ctx))
	if httputil.DomainCodeToHTTPStatus(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, args...)
		return
	}
	h.logger.ErrorContext(ctx, msg, args...)
}
