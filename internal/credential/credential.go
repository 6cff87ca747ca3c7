// Package credential mints, encodes and verifies one-time claim credentials.
//
// A credential is never stored. Its binary form is self-describing and signed
// with a per-event Ed25519 key derived from the platform master seed, so any
// node can reject a forged credential without touching the ledger.
package credential

import (
	"time"

	"solmeet/pkg/domain"
)

// Version is the only binary layout version this package emits and accepts.
const Version byte = 1

const (
	flagSubjectHint byte = 1 << 0
	flagsReserved        = ^flagSubjectHint

	headerSize    = 1 + 1 + 16 + domain.NonceSize + 8
	signatureSize = 64

	// MaxHintSize bounds the subject hint (kind tag plus value).
	MaxHintSize = 64

	// MinEncodedSize is a credential without a subject hint.
	MinEncodedSize = headerSize + signatureSize
	// MaxEncodedSize is a credential carrying the largest subject hint.
	MaxEncodedSize = MinEncodedSize + 1 + MaxHintSize

	// URIPrefix is prepended to the text form for QR payloads.
	URIPrefix = "solmeet://claim/"

	// maxExpiryUnix is 9999-12-31T23:59:59Z.
	maxExpiryUnix = 253402300799
)

// ClaimCredential is the decoded form of a one-time claim token.
type ClaimCredential struct {
	EventID     domain.EventID
	SubjectHint domain.Identity
	Nonce       domain.Nonce
	ExpiresAt   time.Time
	Signature   []byte
}

// HasSubjectHint reports whether the credential is bound to one attendee.
func (c *ClaimCredential) HasSubjectHint() bool {
	return !c.SubjectHint.IsZero()
}

// BindsTo reports whether claimant may redeem the credential.
// Credentials without a subject hint may be redeemed by anyone.
func (c *ClaimCredential) BindsTo(claimant domain.Identity) bool {
	return !c.HasSubjectHint() || c.SubjectHint.Equal(claimant)
}
