package audit

import (
	"context"
	"sort"
	"sync"
)

// DefaultRetention bounds the in-memory trail of a single event.
const DefaultRetention = 10000

// InMemoryStore keeps each event's trail sorted by Timestamp and holds at
// most retention entries per event, evicting the oldest first.
type InMemoryStore struct {
	mu        sync.RWMutex
	trails    map[string][]Event
	retention int
	evicted   int
}

type MemoryOption func(*InMemoryStore)

// WithRetention caps the entries kept per event. Values below one keep the
// default.
func WithRetention(n int) MemoryOption {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

func NewInMemoryStore(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{trails: make(map[string][]Event), retention: DefaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append places event after every entry with an equal or earlier Timestamp,
// so concurrent emitters that race the lock still read back in time order.
func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trail := s.trails[event.EventID]
	i := sort.Search(len(trail), func(i int) bool {
		return trail[i].Timestamp.After(event.Timestamp)
	})
	trail = append(trail, Event{})
	copy(trail[i+1:], trail[i:])
	trail[i] = event

	if over := len(trail) - s.retention; over > 0 {
		trail = append(trail[:0:0], trail[over:]...)
		s.evicted += over
	}
	s.trails[event.EventID] = trail
	return nil
}

func (s *InMemoryStore) ListByEvent(_ context.Context, eventID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.trails[eventID]...), nil
}

// Evicted reports how many entries retention has dropped across all events.
func (s *InMemoryStore) Evicted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}
