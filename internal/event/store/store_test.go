package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"solmeet/internal/event/models"
	"solmeet/internal/platform/sqlite"
	"solmeet/pkg/domain"
	dErrors "solmeet/pkg/domain-errors"
	"solmeet/pkg/platform/sentinel"
	"solmeet/pkg/testutil"
)

// StoreContractSuite runs the same behavioural contract against every
// embedded backend.
type StoreContractSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
	now      time.Time
	org      domain.Identity
}

func TestInMemoryStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(*testing.T) Store { return NewInMemory() }})
}

func TestSQLiteStoreContract(t *testing.T) {
	suite.Run(t, &StoreContractSuite{newStore: func(t *testing.T) Store {
		db, w := sqlite.OpenTest(t)
		return NewSQLite(db, w)
	}})
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	org, err := domain.Wallet("9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
	s.Require().NoError(err)
	s.org = org
}

func (s *StoreContractSuite) newEvent(organizer domain.Identity, start, end time.Time) *models.Event {
	return testutil.NewEventBuilder(s.now).
		WithOrganizer(organizer).
		WithWindow(start, end).
		WithCapacity(2).
		Build()
}

// =============================================================================
// Create / Find
// =============================================================================

func (s *StoreContractSuite) TestCreateAndFind() {
	event := s.newEvent(s.org, s.now, s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, event))

	found, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.ID, found.ID)
	s.True(found.Organizer.Equal(s.org))
	s.Equal("Hall B", found.Venue)
	s.Equal(models.StatusOpen, found.Status)
	s.Equal(2, found.Capacity)
	s.True(found.Window.Start.Equal(event.Window.Start))
	s.True(found.Window.End.Equal(event.Window.End))

	s.Run("duplicate id conflicts", func() {
		s.ErrorIs(s.store.Create(s.ctx, event), sentinel.ErrConflict)
	})

	s.Run("unknown id is not found", func() {
		other, err := domain.NewEventID()
		s.Require().NoError(err)
		_, err = s.store.FindByID(s.ctx, other)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreContractSuite) TestListByOrganizer() {
	other, err := domain.Anonymous("tg-organizer-7")
	s.Require().NoError(err)

	first := s.newEvent(s.org, s.now, s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, s.newEvent(other, s.now, s.now.Add(time.Hour))))

	events, err := s.store.ListByOrganizer(s.ctx, s.org)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(first.ID, events[0].ID)
}

// =============================================================================
// Execute
// =============================================================================

// Invariant: a failing mutator persists nothing.
func (s *StoreContractSuite) TestExecute() {
	event := s.newEvent(s.org, s.now, s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, event))
	later := s.now.Add(time.Minute)

	s.Run("applies transition", func() {
		updated, err := s.store.Execute(s.ctx, event.ID, func(e *models.Event) error {
			return e.TransitionTo(models.StatusClosed, later)
		})
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, updated.Status)

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, found.Status)
		s.True(found.UpdatedAt.Equal(later))
	})

	s.Run("rejected transition leaves event untouched", func() {
		_, err := s.store.Execute(s.ctx, event.ID, func(e *models.Event) error {
			return e.TransitionTo(models.StatusOpen, later)
		})
		s.True(dErrors.HasCode(err, dErrors.CodeEventClosed))

		found, err := s.store.FindByID(s.ctx, event.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, found.Status)
	})

	s.Run("mutator error is returned unchanged", func() {
		boom := errors.New("boom")
		_, err := s.store.Execute(s.ctx, event.ID, func(*models.Event) error { return boom })
		s.ErrorIs(err, boom)
	})

	s.Run("missing event", func() {
		missing, err := domain.NewEventID()
		s.Require().NoError(err)
		_, err = s.store.Execute(s.ctx, missing, func(*models.Event) error { return nil })
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *StoreContractSuite) TestListOpenEndedBefore() {
	ended := s.newEvent(s.org, s.now.Add(-2*time.Hour), s.now.Add(-time.Hour))
	endedEarlier := s.newEvent(s.org, s.now.Add(-3*time.Hour), s.now.Add(-2*time.Hour))
	running := s.newEvent(s.org, s.now, s.now.Add(time.Hour))
	for _, e := range []*models.Event{ended, endedEarlier, running} {
		s.Require().NoError(s.store.Create(s.ctx, e))
	}
	_, err := s.store.Execute(s.ctx, endedEarlier.ID, func(e *models.Event) error {
		return e.TransitionTo(models.StatusCancelled, s.now)
	})
	s.Require().NoError(err)

	events, err := s.store.ListOpenEndedBefore(s.ctx, s.now, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(ended.ID, events[0].ID)

	s.Run("respects limit", func() {
		another := s.newEvent(s.org, s.now.Add(-2*time.Hour), s.now.Add(-30*time.Minute))
		s.Require().NoError(s.store.Create(s.ctx, another))
		events, err := s.store.ListOpenEndedBefore(s.ctx, s.now, 1)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(ended.ID, events[0].ID)
	})
}

// Invariant: Execute is atomic per event, so racing organizers close it once.
func (s *StoreContractSuite) TestConcurrentExecuteTransitionsOnce() {
	event := s.newEvent(s.org, s.now, s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, event))

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.store.Execute(s.ctx, event.ID, func(e *models.Event) error {
			return e.TransitionTo(models.StatusClosed, s.now.Add(time.Minute))
		})
		return err
	})
	s.Equal(1, result.Successes)
	s.Equal(9, result.Code(dErrors.CodeEventClosed))

	found, err := s.store.FindByID(s.ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusClosed, found.Status)
}
