// Package httptransport assembles the public HTTP surface from the module
// handlers and the shared middleware chain.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authmw "solmeet/pkg/platform/middleware/auth"
	"solmeet/pkg/platform/middleware/device"
	"solmeet/pkg/platform/middleware/metadata"
	"solmeet/pkg/platform/middleware/request"
	"solmeet/pkg/platform/middleware/requesttime"
	"solmeet/pkg/platform/validation"
)

const defaultRequestTimeout = 5 * time.Second

// Registrar mounts a module's routes onto a router.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that need no caller identity.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// Deps carries everything the router mounts. Nil handlers are skipped.
type Deps struct {
	Logger  *slog.Logger
	Auth    authmw.CallerValidator
	Metrics *request.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	Health         Registrar
	Events         interface {
		Registrar
		PublicRegistrar
	}
	Claims Registrar
	// ClaimLimiter throttles claim submissions per client IP when set.
	ClaimLimiter func(http.Handler) http.Handler
	// Clock overrides the per-request time. Nil uses the wall clock.
	Clock          requesttime.Clock
	RequestTimeout time.Duration
	Metadata       *metadata.Config
}

// NewRouter wires all endpoints with the middleware chain.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	clockMW := requesttime.Middleware
	if deps.Clock != nil {
		clockMW = requesttime.WithClock(deps.Clock)
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(deps.Metadata).Handler)
	r.Use(device.Middleware)
	r.Use(clockMW)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(deps.Metrics))

	if deps.Health != nil {
		deps.Health.Register(r)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		api.Use(request.Timeout(timeout))
		api.Use(request.ContentTypeJSON)
		api.Use(request.BodyLimit(validation.MaxBodySize))

		if deps.Events != nil {
			deps.Events.RegisterPublic(api)
		}

		api.Group(func(authed chi.Router) {
			authed.Use(authmw.RequireCaller(deps.Auth, logger))
			if deps.Events != nil {
				deps.Events.Register(authed)
			}
			if deps.Claims != nil {
				authed.Group(func(claims chi.Router) {
					if deps.ClaimLimiter != nil {
						claims.Use(deps.ClaimLimiter)
					}
					deps.Claims.Register(claims)
				})
			}
		})
	})

	return r
}
