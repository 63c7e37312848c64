package store

import (
	"context"
	"slices"
	"sync"

	"campusvote/internal/election/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Status    models.Status
	Type      models.Type
	HouseID   *id.HouseID
	SocietyID *id.SocietyID
}

func (f Filter) matches(e *models.Election) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.HouseID != nil && (e.HouseID == nil || *e.HouseID != *f.HouseID) {
		return false
	}
	if f.SocietyID != nil && (e.SocietyID == nil || *e.SocietyID != *f.SocietyID) {
		return false
	}
	return true
}

type InMemoryElectionStore struct {
	mu        sync.RWMutex
	elections map[id.ElectionID]*models.Election
}

func NewInMemoryElectionStore() *InMemoryElectionStore {
	return &InMemoryElectionStore{elections: make(map[id.ElectionID]*models.Election)}
}

func (s *InMemoryElectionStore) Create(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[election.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.elections[election.ID] = election.Clone()
	return nil
}

func (s *InMemoryElectionStore) Update(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[election.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.elections[election.ID] = election.Clone()
	return nil
}

func (s *InMemoryElectionStore) Delete(_ context.Context, electionID id.ElectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.elections[electionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.elections, electionID)
	return nil
}

func (s *InMemoryElectionStore) FindByID(_ context.Context, electionID id.ElectionID) (*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[electionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return election.Clone(), nil
}

// FindByIDForUpdate is FindByID here; callers serialize through tx.LockRunner.
func (s *InMemoryElectionStore) FindByIDForUpdate(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	return s.FindByID(ctx, electionID)
}

// List returns matching elections, newest first.
func (s *InMemoryElectionStore) List(_ context.Context, filter Filter) ([]*models.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Election, 0, len(s.elections))
	for _, e := range s.elections {
		if filter.matches(e) {
			out = append(out, e.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Election) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}
