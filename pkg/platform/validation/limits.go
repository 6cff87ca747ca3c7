package validation

import (
	"unicode/utf8"

	dErrors "solmeet/pkg/domain-errors"
)

// HTTP body limits
const (
	// MaxBodySize is the maximum allowed request body size (64 KB).
	MaxBodySize = 64 * 1024
)

// Event metadata limits, in characters.
const (
	MaxTitleLength       = 50
	MaxDescriptionLength = 200
	MaxVenueLength       = 100
)

// Credential limits
const (
	// MaxCredentialBatch caps how many credentials one issuance request may mint.
	MaxCredentialBatch = 500

	// MaxCredentialTextLength bounds the presented credential string, URI prefix included.
	MaxCredentialTextLength = 512
)

// CheckCount validates that a requested count is within [1, max].
func CheckCount(fieldName string, count, max int) error {
	if count < 1 || count > max {
		return dErrors.Newf(dErrors.CodeValidation, "%s must be between 1 and %d", fieldName, max)
	}
	return nil
}

// CheckStringLength validates that a string does not exceed max characters.
func CheckStringLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.Newf(dErrors.CodeValidation, "%s exceeds max length of %d", fieldName, max)
	}
	return nil
}
