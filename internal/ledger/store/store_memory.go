package store

import (
	"context"
	"slices"
	"sync"

	"solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
	psync "solmeet/pkg/platform/sync"
)

type eventLedger struct {
	entries    []models.Entry
	byNonce    map[domain.Nonce]int
	byClaimant map[string]int
}

// InMemoryStore keeps one ledger per event. Per-event state is guarded by a
// sharded lock so inserts for different events rarely contend; mu only
// guards the map of ledgers.
type InMemoryStore struct {
	locks  *psync.ShardedRWMutex
	mu     sync.RWMutex
	events map[domain.EventID]*eventLedger
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		locks:  psync.NewShardedRWMutex(),
		events: make(map[domain.EventID]*eventLedger),
	}
}

func (s *InMemoryStore) ledger(eventID domain.EventID, create bool) *eventLedger {
	s.mu.RLock()
	l, ok := s.events[eventID]
	s.mu.RUnlock()
	if ok || !create {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.events[eventID]; ok {
		return l
	}
	l = &eventLedger{
		byNonce:    make(map[domain.Nonce]int),
		byClaimant: make(map[string]int),
	}
	s.events[eventID] = l
	return l
}

func (s *InMemoryStore) TryInsert(ctx context.Context, entry models.Entry, capacity int) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("ledger insert", err)
	}
	key := entry.Record.EventID.String()
	return s.locks.WithLock(key, func() error {
		l := s.ledger(entry.Record.EventID, true)
		if _, ok := l.byNonce[entry.Record.Nonce]; ok {
			return ErrNonceConsumed
		}
		if _, ok := l.byClaimant[entry.Record.Claimant.Key()]; ok {
			return ErrAlreadyClaimed
		}
		if capacity > 0 && len(l.entries) >= capacity {
			return ErrCapacityReached
		}
		l.entries = append(l.entries, entry)
		idx := len(l.entries) - 1
		l.byNonce[entry.Record.Nonce] = idx
		l.byClaimant[entry.Record.Claimant.Key()] = idx
		return nil
	})
}

func (s *InMemoryStore) CountByEvent(_ context.Context, eventID domain.EventID) (int, error) {
	key := eventID.String()
	s.locks.RLock(key)
	defer s.locks.RUnlock(key)
	l := s.ledger(eventID, false)
	if l == nil {
		return 0, nil
	}
	return len(l.entries), nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID domain.EventID) ([]models.Entry, error) {
	key := eventID.String()
	s.locks.RLock(key)
	defer s.locks.RUnlock(key)
	l := s.ledger(eventID, false)
	if l == nil {
		return nil, nil
	}
	entries := append([]models.Entry(nil), l.entries...)
	slices.SortStableFunc(entries, func(a, b models.Entry) int {
		return a.Record.ConsumedAt.Compare(b.Record.ConsumedAt)
	})
	return entries, nil
}

func (s *InMemoryStore) FindByClaimant(_ context.Context, eventID domain.EventID, claimant domain.Identity) (*models.Entry, error) {
	key := eventID.String()
	s.locks.RLock(key)
	defer s.locks.RUnlock(key)
	l := s.ledger(eventID, false)
	if l == nil {
		return nil, sentinel.ErrNotFound
	}
	idx, ok := l.byClaimant[claimant.Key()]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	entry := l.entries[idx]
	return &entry, nil
}

func (s *InMemoryStore) FindByNonce(_ context.Context, eventID domain.EventID, nonce domain.Nonce) (*models.Entry, error) {
	key := eventID.String()
	s.locks.RLock(key)
	defer s.locks.RUnlock(key)
	l := s.ledger(eventID, false)
	if l == nil {
		return nil, sentinel.ErrNotFound
	}
	idx, ok := l.byNonce[nonce]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	entry := l.entries[idx]
	return &entry, nil
}
