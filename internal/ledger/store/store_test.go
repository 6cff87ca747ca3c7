package store

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"solmeet/internal/ledger/models"
	"solmeet/internal/platform/sqlite"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/sentinel"
	"solmeet/pkg/testutil"
)

// LedgerContractSuite runs the same behavioural contract against every
// embedded backend.
type LedgerContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
	eventID  domain.EventID
	now      time.Time
}

func TestInMemoryLedgerContract(t *testing.T) {
	suite.Run(t, &LedgerContractSuite{newStore: func(*testing.T) Store { return NewInMemory() }})
}

func TestSQLiteLedgerContract(t *testing.T) {
	suite.Run(t, &LedgerContractSuite{newStore: func(t *testing.T) Store {
		db, w := sqlite.OpenTest(t)
		return NewSQLite(db, w)
	}})
}

func (s *LedgerContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := domain.NewEventID()
	s.Require().NoError(err)
	s.eventID = id
}

func (s *LedgerContractSuite) claimant(token string) domain.Identity {
	id, err := domain.Anonymous(token)
	s.Require().NoError(err)
	return id
}

func (s *LedgerContractSuite) entry(claimant domain.Identity, at time.Time) models.Entry {
	nonce, err := domain.NewNonce()
	s.Require().NoError(err)
	return testEntry(s.eventID, claimant, nonce, at)
}

// testEntry builds a valid entry with a stand-in digest.
func testEntry(eventID domain.EventID, claimant domain.Identity, nonce domain.Nonce, at time.Time) models.Entry {
	rec := models.ClaimRecord{EventID: eventID, Claimant: claimant, Nonce: nonce, ConsumedAt: at}
	return models.Entry{
		Record: rec,
		Proof: models.CompressedProof{
			EventID:  eventID,
			Claimant: claimant,
			Nonce:    nonce,
			Digest:   sha256.Sum256(append(nonce[:], claimant.Key()...)),
			IssuedAt: at,
		},
	}
}

func (s *LedgerContractSuite) TestInsertAndFind() {
	alice := s.claimant("tg-alice")
	e := s.entry(alice, s.now)
	s.Require().NoError(s.store.TryInsert(s.ctx, e, 0))

	byNonce, err := s.store.FindByNonce(s.ctx, s.eventID, e.Record.Nonce)
	s.Require().NoError(err)
	s.True(byNonce.Record.Claimant.Equal(alice))
	s.Equal(e.Proof.Digest, byNonce.Proof.Digest)
	s.True(e.Record.ConsumedAt.Equal(byNonce.Record.ConsumedAt))

	byClaimant, err := s.store.FindByClaimant(s.ctx, s.eventID, alice)
	s.Require().NoError(err)
	s.Equal(e.Record.Nonce, byClaimant.Record.Nonce)
	s.Equal(byClaimant.Record.Nonce, byClaimant.Proof.Nonce)

	count, err := s.store.CountByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *LedgerContractSuite) TestMissingLookupsAreNotFound() {
	_, err := s.store.FindByClaimant(s.ctx, s.eventID, s.claimant("nobody"))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByNonce(s.ctx, s.eventID, domain.Nonce{1})
	s.ErrorIs(err, sentinel.ErrNotFound)

	count, err := s.store.CountByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Zero(count)

	entries, err := s.store.ListByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *LedgerContractSuite) TestRejectsReusedNonce() {
	first := s.entry(s.claimant("tg-alice"), s.now)
	s.Require().NoError(s.store.TryInsert(s.ctx, first, 0))

	replay := testEntry(s.eventID, s.claimant("tg-bob"), first.Record.Nonce, s.now.Add(time.Second))
	err := s.store.TryInsert(s.ctx, replay, 0)
	s.ErrorIs(err, ErrNonceConsumed)
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *LedgerContractSuite) TestRejectsSecondClaimBySameClaimant() {
	alice := s.claimant("tg-alice")
	s.Require().NoError(s.store.TryInsert(s.ctx, s.entry(alice, s.now), 0))

	err := s.store.TryInsert(s.ctx, s.entry(alice, s.now.Add(time.Second)), 0)
	s.ErrorIs(err, ErrAlreadyClaimed)
}

func (s *LedgerContractSuite) TestEnforcesCapacity() {
	s.Require().NoError(s.store.TryInsert(s.ctx, s.entry(s.claimant("tg-a"), s.now), 2))
	s.Require().NoError(s.store.TryInsert(s.ctx, s.entry(s.claimant("tg-b"), s.now), 2))

	err := s.store.TryInsert(s.ctx, s.entry(s.claimant("tg-c"), s.now), 2)
	s.ErrorIs(err, ErrCapacityReached)

	count, err := s.store.CountByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(2, count)
}

// A duplicate is reported as such even when the event is also full.
func (s *LedgerContractSuite) TestConflictOrderPrefersDuplicateOverCapacity() {
	alice := s.claimant("tg-alice")
	first := s.entry(alice, s.now)
	s.Require().NoError(s.store.TryInsert(s.ctx, first, 1))

	s.ErrorIs(s.store.TryInsert(s.ctx, first, 1), ErrNonceConsumed)
	s.ErrorIs(s.store.TryInsert(s.ctx, s.entry(alice, s.now), 1), ErrAlreadyClaimed)
	s.ErrorIs(s.store.TryInsert(s.ctx, s.entry(s.claimant("tg-bob"), s.now), 1), ErrCapacityReached)
}

func (s *LedgerContractSuite) TestEventsAreIsolated() {
	alice := s.claimant("tg-alice")
	s.Require().NoError(s.store.TryInsert(s.ctx, s.entry(alice, s.now), 1))

	otherID, err := domain.NewEventID()
	s.Require().NoError(err)
	nonce, err := domain.NewNonce()
	s.Require().NoError(err)
	s.NoError(s.store.TryInsert(s.ctx, testEntry(otherID, alice, nonce, s.now), 1))
}

func (s *LedgerContractSuite) TestListByEventOrdersByConsumption() {
	for i := 3; i > 0; i-- {
		at := s.now.Add(time.Duration(i) * time.Minute)
		s.Require().NoError(s.store.TryInsert(s.ctx, s.entry(s.claimant(fmt.Sprintf("tg-%d", i)), at), 0))
	}

	entries, err := s.store.ListByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i := 1; i < len(entries); i++ {
		s.True(entries[i-1].Record.ConsumedAt.Before(entries[i].Record.ConsumedAt))
	}
	s.Equal("anonymous:tg-1", entries[0].Record.Claimant.Key())
}

func (s *LedgerContractSuite) TestRejectsInconsistentEntry() {
	e := s.entry(s.claimant("tg-alice"), s.now)
	e.Proof.Nonce[0] ^= 0xff
	err := s.store.TryInsert(s.ctx, e, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *LedgerContractSuite) TestConcurrentSameNonceAcceptsOnce() {
	nonce, err := domain.NewNonce()
	s.Require().NoError(err)

	result := testutil.RunConcurrent(20, func(i int) error {
		e := testEntry(s.eventID, s.claimant(fmt.Sprintf("tg-%d", i)), nonce, s.now)
		return s.store.TryInsert(s.ctx, e, 0)
	})
	s.Equal(1, result.Successes)
	s.Equal(19, result.Conflicts)
}

func (s *LedgerContractSuite) TestConcurrentClaimsNeverExceedCapacity() {
	const capacity = 5
	successes, errs := testutil.RunConcurrentCollect(30, func(i int) error {
		return s.store.TryInsert(s.ctx, s.entry(s.claimant(fmt.Sprintf("tg-%d", i)), s.now), capacity)
	})
	s.Equal(capacity, successes)
	for _, err := range errs {
		s.ErrorIs(err, ErrCapacityReached)
	}

	count, err := s.store.CountByEvent(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(capacity, count)
}

func (s *LedgerContractSuite) TestConcurrentSameClaimantAcceptsOnce() {
	alice := s.claimant("tg-alice")
	successes, errs := testutil.RunConcurrentCollect(10, func(int) error {
		return s.store.TryInsert(s.ctx, s.entry(alice, s.now), 0)
	})
	s.Equal(1, successes)
	for _, err := range errs {
		s.ErrorIs(err, ErrAlreadyClaimed)
	}
}
