// Package models holds the proof ledger's records.
package models

import (
	"time"

	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
)

// DigestSize is the length of a proof digest (BLAKE2b-256).
const DigestSize = 32

// ClaimRecord marks a consumed credential nonce and the claimant who used it.
// Unique per (EventID, Nonce) and per (EventID, Claimant).
type ClaimRecord struct {
	EventID    domain.EventID
	Claimant   domain.Identity
	Nonce      domain.Nonce
	ConsumedAt time.Time
}

// CompressedProof is the compact proof-of-attendance paired 1:1 with a record.
type CompressedProof struct {
	EventID  domain.EventID
	Claimant domain.Identity
	Nonce    domain.Nonce
	Digest   [DigestSize]byte
	IssuedAt time.Time
}

// Entry is the unit the ledger commits atomically: a record never exists
// without its proof.
type Entry struct {
	Record ClaimRecord
	Proof  CompressedProof
}

// Validate checks the record and proof describe the same claim.
func (e Entry) Validate() error {
	r, p := e.Record, e.Proof
	switch {
	case r.EventID.IsNil():
		return dErrors.New(dErrors.CodeInvariantViolation, "claim record event id is required")
	case r.Claimant.IsZero():
		return dErrors.New(dErrors.CodeInvariantViolation, "claim record claimant is required")
	case r.Nonce.IsZero():
		return dErrors.New(dErrors.CodeInvariantViolation, "claim record nonce is required")
	case p.EventID != r.EventID || p.Nonce != r.Nonce || !p.Claimant.Equal(r.Claimant):
		return dErrors.New(dErrors.CodeInvariantViolation, "proof does not match claim record")
	case p.Digest == [DigestSize]byte{}:
		return dErrors.New(dErrors.CodeInvariantViolation, "proof digest is required")
	}
	return nil
}
