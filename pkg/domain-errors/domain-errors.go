// Package domainerrors carries stable, transport-neutral failure codes from
// stores and services up to the HTTP boundary.
package domainerrors

import (
	"errors"
	"fmt"
)

type Code string

// General purpose codes.
const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_failed"
	CodeInternal           Code = "internal_error"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
)

// Claim outcomes. Each rejection a claimant or organizer can observe maps to
// exactly one of these.
const (
	CodeMalformedCredential Code = "malformed_credential"
	CodeForgedCredential    Code = "forged_credential"
	CodeUnknownEvent        Code = "unknown_event"
	CodeEventClosed         Code = "event_closed"
	CodeExpired             Code = "expired"
	CodeCapacityExceeded    Code = "capacity_exceeded"
	CodeAlreadyClaimed      Code = "already_claimed"
	CodeUnauthorized        Code = "unauthorized"
	CodeInvalidWindow       Code = "invalid_window"
	CodeLedgerUnavailable   Code = "ledger_unavailable"
)

var claimRejections = map[Code]bool{
	CodeMalformedCredential: true,
	CodeForgedCredential:    true,
	CodeUnknownEvent:        true,
	CodeEventClosed:         true,
	CodeExpired:             true,
	CodeCapacityExceeded:    true,
	CodeAlreadyClaimed:      true,
	CodeUnauthorized:        true,
	CodeInvalidWindow:       true,
	CodeLedgerUnavailable:   true,
}

// IsClaimRejection reports whether code belongs to the claim outcome taxonomy.
func (c Code) IsClaimRejection() bool { return claimRejections[c] }

// Error is a coded failure. Message is safe to show a client; Err keeps the
// underlying cause for logs and errors.Is.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, &Error{Code: c})
// works as a code test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches msg to err. A code already present in err's chain wins over
// code, so a store's not_found survives a service-level wrap.
func Wrap(err error, code Code, msg string) error {
	var existing *Error
	if errors.As(err, &existing) {
		code = existing.Code
	}
	return &Error{Code: code, Message: msg, Err: err}
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// CodeOf returns the outermost code in err's chain, CodeInternal if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Retryable reports whether repeating the same attempt can succeed. Only
// ledger unavailability qualifies.
func Retryable(err error) bool {
	return HasCode(err, CodeLedgerUnavailable)
}
