package handler

import (
	"encoding/hex"
	"time"

	"solmeet/internal/ledger/models"
)

type ProofResponse struct {
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

type ClaimResponse struct {
	EventID    string        `json:"event_id"`
	Claimant   string        `json:"claimant"`
	Nonce      string        `json:"nonce"`
	ConsumedAt time.Time     `json:"consumed_at"`
	Proof      ProofResponse `json:"proof"`
}

type ClaimListResponse struct {
	EventID string          `json:"event_id"`
	Claims  []ClaimResponse `json:"claims"`
}

func toClaimResponse(e *models.Entry) ClaimResponse {
	return ClaimResponse{
		EventID:    e.Record.EventID.String(),
		Claimant:   e.Record.Claimant.Key(),
		Nonce:      e.Record.Nonce.String(),
		ConsumedAt: e.Record.ConsumedAt,
		Proof: ProofResponse{
			Digest:   hex.EncodeToString(e.Proof.Digest[:]),
			IssuedAt: e.Proof.IssuedAt,
		},
	}
}

func toClaimListResponse(eventID string, entries []models.Entry) *ClaimListResponse {
	out := make([]ClaimResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toClaimResponse(&entries[i]))
	}
	return &ClaimListResponse{EventID: eventID, Claims: out}
}
