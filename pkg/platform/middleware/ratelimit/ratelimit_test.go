package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solmeet/pkg/requestcontext"
)

func request(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/claims", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestMiddleware_EnforcesBurstPerClient(t *testing.T) {
	h := New(0.001, 2).Middleware(okHandler())

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1").Code)

	w := request(h, "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited","error_description":"Too many requests","retryable":true}`, w.Body.String())

	// another client has its own bucket
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.2").Code)
}

func TestSweep_RemovesIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	h := l.Middleware(okHandler())

	request(h, "10.0.0.1")
	assert.Equal(t, 0, l.Sweep())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, l.Sweep())
}
