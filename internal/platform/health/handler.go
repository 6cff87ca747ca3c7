// Package health serves liveness, readiness and status endpoints.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"solmeet/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// CheckFunc tests one dependency and returns nil when it is usable.
type CheckFunc func(ctx context.Context) error

const checkTimeout = 2 * time.Second

// Outcomes reported per check.
const (
	StatusUp       = "up"
	StatusDegraded = "degraded"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

type registered struct {
	check    CheckFunc
	critical bool
}

// Handler aggregates dependency checks. Critical checks gate readiness;
// optional ones only mark the service degraded.
type Handler struct {
	started     time.Time
	environment string

	mu     sync.RWMutex
	checks map[string]registered
}

func New(environment string) *Handler {
	return &Handler{
		started:     time.Now(),
		environment: environment,
		checks:      make(map[string]registered),
	}
}

// RegisterCheck adds a check that must pass for the service to be ready.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.register(name, registered{check: check, critical: true})
}

// RegisterOptional adds a check whose failure is reported but does not take
// the service out of rotation.
func (h *Handler) RegisterOptional(name string, check CheckFunc) {
	h.register(name, registered{check: check})
}

func (h *Handler) register(name string, p registered) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = p
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every check concurrently, each under its own timeout.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	snapshot := make(map[string]registered, len(h.checks))
	for name, p := range h.checks {
		snapshot[name] = p
	}
	h.mu.RUnlock()

	var (
		mu       sync.Mutex
		results  = make(map[string]string, len(snapshot))
		ready    = true
		degraded = false
	)
	var g errgroup.Group
	for name, p := range snapshot {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			err := p.check(ctx)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				results[name] = StatusUp
			case p.critical:
				results[name] = "down: " + err.Error()
				ready = false
			default:
				results[name] = StatusDegraded + ": " + err.Error()
				degraded = true
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: StatusReady, Checks: results}
	switch {
	case !ready:
		resp.Status = StatusNotReady
		httputil.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	case degraded:
		resp.Status = StatusDegraded
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	now := time.Now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
	})
}
