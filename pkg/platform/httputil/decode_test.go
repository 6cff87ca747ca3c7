package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "solmeet/pkg/domain-errors"
)

type rsvpRequest struct {
	Handle string `json:"handle"`
	Seats  int    `json:"seats"`

	normalized bool
}

func (r *rsvpRequest) Normalize() {
	r.normalized = true
	r.Handle = strings.TrimSpace(r.Handle)
}

func (r *rsvpRequest) Validate() error {
	if r.Handle == "" {
		return errors.New("handle is required")
	}
	if r.Seats > 4 {
		return dErrors.New(dErrors.CodeCapacityExceeded, "too many seats")
	}
	return nil
}

type plainRequest struct {
	Note string `json:"note"`
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", "", "request body is empty"},
		{"syntax error", "{nope}", "invalid request body"},
		{"unknown field", `{"note":"x","extra":1}`, "invalid request body"},
		{"trailing object", `{"note":"x"}{"note":"y"}`, "single object"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeJSON[plainRequest](post(tc.body))
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	t.Run("oversized body", func(t *testing.T) {
		r := post(`{"note":"` + strings.Repeat("a", 64) + `"}`)
		r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 16)
		_, err := DecodeJSON[plainRequest](r)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("decodes", func(t *testing.T) {
		req, err := DecodeJSON[plainRequest](post(`{"note":"hello"}`))
		require.NoError(t, err)
		assert.Equal(t, "hello", req.Note)
	})
}

func TestPrepare(t *testing.T) {
	t.Run("plain error becomes validation failure", func(t *testing.T) {
		err := Prepare(&rsvpRequest{Handle: "  "})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("domain error keeps its code", func(t *testing.T) {
		err := Prepare(&rsvpRequest{Handle: "ana", Seats: 9})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	})

	t.Run("types without hooks pass", func(t *testing.T) {
		assert.NoError(t, Prepare(&plainRequest{}))
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normalizes before validating", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[rsvpRequest](w, post(`{"handle":"  ana  ","seats":2}`), logger)
		require.True(t, ok)
		assert.True(t, req.normalized)
		assert.Equal(t, "ana", req.Handle)
	})

	t.Run("writes the error response", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[rsvpRequest](w, post(`{"handle":""}`), logger)
		assert.False(t, ok)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "validation_failed", body.Error)
		assert.Equal(t, "handle is required", body.ErrorDescription)
	})
}
