// Package requesttime pins a single "now" per HTTP request. Claim expiry,
// window checks, ledger timestamps and audit events inside one request all
// read the same instant through requestcontext.Now.
package requesttime

import (
	"net/http"
	"time"

	"solmeet/pkg/requestcontext"
)

// Clock returns the current time.
type Clock func() time.Time

// Middleware captures the wall-clock time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable time source, used by
// end-to-end tests that replay a scenario at fixed offsets.
func WithClock(clock Clock) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
