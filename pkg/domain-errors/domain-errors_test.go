package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: every claim rejection crosses the HTTP boundary as one of
// these codes. The suite pins "wrapping preserves the original code" and
// "only ledger unavailability is retryable".
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeUnknownEvent, Message: "event does not exist"}
		s.Equal("event does not exist", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeAlreadyClaimed}
		s.Equal("already_claimed", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeExpired, Message: "credential expired"}
		err2 := &Error{Code: CodeExpired, Message: "window ended"}
		s.True(errors.Is(err1, err2))
	})

	s.Run("does not match different codes", func() {
		s.False(errors.Is(&Error{Code: CodeExpired}, &Error{Code: CodeEventClosed}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not found")))
	})

	s.Run("works through fmt wrapping", func() {
		inner := New(CodeForgedCredential, "bad signature")
		wrapped := fmt.Errorf("present claim: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeForgedCredential}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code when wrapping domain error", func() {
		original := New(CodeCapacityExceeded, "event is full")
		wrapped := Wrap(original, CodeInternal, "commit claim")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeCapacityExceeded, domainErr.Code)
		s.Equal("commit claim", domainErr.Message)
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("connection reset")
		wrapped := Wrap(original, CodeLedgerUnavailable, "ledger insert")

		s.True(HasCode(wrapped, CodeLedgerUnavailable))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("finds code through error chain", func() {
		wrapped := fmt.Errorf("outer: %w", New(CodeMalformedCredential, "truncated"))
		s.True(HasCode(wrapped, CodeMalformedCredential))
		s.Equal(CodeMalformedCredential, CodeOf(wrapped))
	})

	s.Run("plain errors report internal", func() {
		s.False(HasCode(errors.New("boom"), CodeNotFound))
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})

	s.Run("nil error has no code", func() {
		s.False(HasCode(nil, CodeNotFound))
	})
}

func (s *DomainErrorsSuite) TestNewfAndTaxonomy() {
	err := Newf(CodeEventClosed, "event is %s", "cancelled")
	s.Equal("event is cancelled", err.Error())
	s.True(CodeEventClosed.IsClaimRejection())
	s.False(CodeValidation.IsClaimRejection())
}

func (s *DomainErrorsSuite) TestRetryable() {
	s.True(Retryable(New(CodeLedgerUnavailable, "ledger busy")))

	terminal := []Code{
		CodeMalformedCredential, CodeForgedCredential, CodeUnknownEvent, CodeEventClosed,
		CodeExpired, CodeCapacityExceeded, CodeAlreadyClaimed, CodeUnauthorized, CodeInvalidWindow,
	}
	for _, code := range terminal {
		s.False(Retryable(New(code, "terminal")), string(code))
	}
	s.False(Retryable(errors.New("plain")))
}
