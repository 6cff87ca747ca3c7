package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "solmeet/pkg/domain-errors"
)

// RetryAfterSeconds is advertised on every retryable failure.
const RetryAfterSeconds = 1

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// The error field carries the domain code verbatim so clients can render
// "already claimed" and "event closed" differently.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: string(dErrors.CodeInternal)})
		return
	}

	resp := ErrorResponse{
		Error:            string(domainErr.Code),
		ErrorDescription: domainErr.Message,
		Retryable:        dErrors.Retryable(domainErr),
	}
	if domainErr.Code == dErrors.CodeInternal {
		// internal details stay in logs
		resp.ErrorDescription = ""
	}
	if resp.Retryable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), resp)
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeUnknownEvent:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput,
		dErrors.CodeInvariantViolation, dErrors.CodeMalformedCredential, dErrors.CodeInvalidWindow:
		return http.StatusBadRequest
	case dErrors.CodeForgedCredential, dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeConflict, dErrors.CodeEventClosed, dErrors.CodeAlreadyClaimed, dErrors.CodeCapacityExceeded:
		return http.StatusConflict
	case dErrors.CodeExpired:
		return http.StatusGone
	case dErrors.CodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
