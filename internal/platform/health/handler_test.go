package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestReadiness(t *testing.T) {
	h := New("test")
	h.RegisterCheck("ledger", func(context.Context) error { return nil })

	rec := serve(h, "/health/ready")
	assert.Equal(t, http.StatusOK, rec.Code)

	h.RegisterCheck("event_store", func(context.Context) error { return errors.New("connection refused") })
	rec = serve(h, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "up", body.Checks["ledger"])
	assert.Equal(t, "down: connection refused", body.Checks["event_store"])
}

func TestReadiness_OptionalCheckDegrades(t *testing.T) {
	h := New("test")
	h.RegisterCheck("ledger", func(context.Context) error { return nil })
	h.RegisterOptional("ledger_breaker", func(context.Context) error { return errors.New("open") })

	rec := serve(h, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusDegraded, body.Status)
	assert.Equal(t, "degraded: open", body.Checks["ledger_breaker"])
}

func TestReadiness_CheckTimeout(t *testing.T) {
	h := New("test")
	h.RegisterCheck("event_store", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	r := chi.NewRouter()
	h.Register(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusAndLiveness(t *testing.T) {
	h := New("test")
	assert.Equal(t, http.StatusOK, serve(h, "/health/live").Code)

	rec := serve(h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "test", body.Environment)
}
