// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"

	dErrors "solmeet/pkg/domain-errors"
)

// EventID identifies an event. New IDs are UUIDv7: a millisecond time prefix
// followed by random bits, so they sort by creation time.
type EventID uuid.UUID

// NonceSize is the length of a credential nonce in bytes.
const NonceSize = 16

// Nonce is the random per-issuance value retained by the ledger in place of
// the full credential.
type Nonce [NonceSize]byte

// NewEventID allocates a fresh time-ordered event identifier.
func NewEventID() (EventID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return EventID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate event id")
	}
	return EventID(id), nil
}

// ParseEventID parses a trust-boundary event identifier.
// Nil UUIDs parse successfully; services decide whether nil means "not found".
func ParseEventID(s string) (EventID, error) {
	if s == "" {
		return EventID{}, dErrors.New(dErrors.CodeInvalidInput, "event ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return EventID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid event ID format")
	}
	return EventID(id), nil
}

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// Bytes returns the 16-byte wire form.
func (id EventID) Bytes() []byte {
	b := uuid.UUID(id)
	return b[:]
}

// NewNonce draws a nonce from crypto/rand.
func NewNonce() (Nonce, error) {
	var n Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return Nonce{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate nonce")
	}
	return n, nil
}

// ParseNonce parses the hex form produced by Nonce.String.
func ParseNonce(s string) (Nonce, error) {
	var n Nonce
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != NonceSize {
		return Nonce{}, dErrors.New(dErrors.CodeInvalidInput, "invalid nonce format")
	}
	copy(n[:], raw)
	return n, nil
}

func (n Nonce) String() string { return hex.EncodeToString(n[:]) }
func (n Nonce) IsZero() bool   { return n == Nonce{} }
