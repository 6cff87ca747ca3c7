package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"solmeet/internal/event/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

// InMemoryStore keeps events in a map guarded by one RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.EventID]*models.Event
}

// NewInMemory constructs an empty in-memory event store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.EventID]*models.Event)}
}

func (s *InMemoryStore) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return event.Clone(), nil
}

func (s *InMemoryStore) ListByOrganizer(_ context.Context, organizer domain.Identity) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	for _, event := range s.events {
		if event.IsOrganizer(organizer) {
			out = append(out, event.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) ListOpenEndedBefore(_ context.Context, now time.Time, limit int) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	for _, event := range s.events {
		if event.IsOpen() && event.Window.EndedBy(now) {
			out = append(out, event.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Window.End.Before(out[j].Window.End) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Execute(_ context.Context, id domain.EventID, mutate Mutator) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.events[id] = working
	return working.Clone(), nil
}
