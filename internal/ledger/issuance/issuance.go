// Package issuance turns an accepted claim into its compressed proof and
// commits both to the ledger as one unit.
package issuance

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"

	"solmeet/internal/ledger/models"
	dErrors "solmeet/pkg/domain-errors"
)

const (
	MinProofSaltSize = 16
	MaxProofSaltSize = blake2b.Size // keyed BLAKE2b accepts at most 64 key bytes
)

// Ledger is the atomic conditional write the gateway commits through.
type Ledger interface {
	TryInsert(ctx context.Context, entry models.Entry, capacity int) error
}

type Gateway struct {
	ledger Ledger
	salt   []byte
}

func New(ledger Ledger, proofSalt []byte) (*Gateway, error) {
	if ledger == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "ledger is required")
	}
	if len(proofSalt) < MinProofSaltSize || len(proofSalt) > MaxProofSaltSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "proof salt must be 16-64 bytes")
	}
	return &Gateway{ledger: ledger, salt: append([]byte(nil), proofSalt...)}, nil
}

// Finalize derives the proof for a record. It is pure: the same record
// always yields the same proof, and IssuedAt is the record's ConsumedAt.
func (g *Gateway) Finalize(record models.ClaimRecord) models.CompressedProof {
	proof := models.CompressedProof{
		EventID:  record.EventID,
		Claimant: record.Claimant,
		Nonce:    record.Nonce,
		IssuedAt: record.ConsumedAt,
	}
	copy(proof.Digest[:], g.digest(record).Sum(nil))
	return proof
}

// Verify reports whether proof was produced by this gateway's salt.
func (g *Gateway) Verify(proof models.CompressedProof) bool {
	want := g.digest(models.ClaimRecord{
		EventID:  proof.EventID,
		Claimant: proof.Claimant,
		Nonce:    proof.Nonce,
	}).Sum(nil)
	return subtle.ConstantTimeCompare(want, proof.Digest[:]) == 1
}

// digest hashes event_id | len(claimant) | claimant | nonce.
func (g *Gateway) digest(record models.ClaimRecord) hash.Hash {
	h, err := blake2b.New256(g.salt)
	if err != nil {
		// salt length is checked in New
		panic(err)
	}
	claimant := record.Claimant.Key()
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(claimant)))

	h.Write(record.EventID.Bytes())
	h.Write(n[:])
	h.Write([]byte(claimant))
	h.Write(record.Nonce[:])
	return h
}

// Commit finalizes the record and inserts record and proof atomically.
// Ledger errors are returned unchanged for the caller to classify.
func (g *Gateway) Commit(ctx context.Context, record models.ClaimRecord, capacity int) (models.Entry, error) {
	entry := models.Entry{Record: record, Proof: g.Finalize(record)}
	if err := g.ledger.TryInsert(ctx, entry, capacity); err != nil {
		return models.Entry{}, err
	}
	return entry, nil
}
