package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/requestcontext"
)

// Preparable request bodies normalize their fields before validation runs.
type Preparable interface {
	Normalize()
	Validate() error
}

// DecodeJSON reads exactly one JSON object from the body. Unknown fields and
// trailing data are rejected.
func DecodeJSON[T any](r *http.Request) (*T, error) {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req T
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body too large")
		case errors.Is(err, io.EOF):
			return nil, dErrors.New(dErrors.CodeBadRequest, "request body is empty")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if dec.More() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request body must hold a single object")
	}
	return &req, nil
}

// Prepare normalizes then validates req when it implements Preparable.
// Plain validation errors are reported as CodeValidation.
func Prepare(req any) error {
	p, ok := req.(Preparable)
	if !ok {
		return nil
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return err
		}
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return nil
}

// DecodeAndPrepare decodes and prepares the body, writing the error response
// itself on failure.
//
//	req, ok := httputil.DecodeAndPrepare[PresentClaimRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	ctx := r.Context()
	req, err := DecodeJSON[T](r)
	if err == nil {
		err = Prepare(req)
	}
	if err != nil {
		logger.WarnContext(ctx, "rejected request body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
