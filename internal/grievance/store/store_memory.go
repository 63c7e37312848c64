package store

import (
	"context"
	"slices"
	"sync"

	"campusvote/internal/grievance/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

type InMemoryGrievanceStore struct {
	mu         sync.RWMutex
	grievances map[id.GrievanceID]*models.Grievance
}

func NewInMemoryGrievanceStore() *InMemoryGrievanceStore {
	return &InMemoryGrievanceStore{grievances: make(map[id.GrievanceID]*models.Grievance)}
}

func (s *InMemoryGrievanceStore) Create(_ context.Context, g *models.Grievance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grievances[g.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.grievances[g.ID] = g.Clone()
	return nil
}

func (s *InMemoryGrievanceStore) Update(_ context.Context, g *models.Grievance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grievances[g.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.grievances[g.ID] = g.Clone()
	return nil
}

func (s *InMemoryGrievanceStore) FindByID(_ context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grievances[grievanceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *InMemoryGrievanceStore) ListBySubmitter(_ context.Context, userID id.UserID) ([]*models.Grievance, error) {
	return s.filter(func(g *models.Grievance) bool { return g.SubmittedBy == userID }), nil
}

// List returns every grievance, or only those in status when it is set.
func (s *InMemoryGrievanceStore) List(_ context.Context, status *models.Status) ([]*models.Grievance, error) {
	return s.filter(func(g *models.Grievance) bool { return status == nil || g.Status == *status }), nil
}

// filter returns matches newest first.
func (s *InMemoryGrievanceStore) filter(match func(*models.Grievance) bool) []*models.Grievance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Grievance, 0)
	for _, g := range s.grievances {
		if match(g) {
			out = append(out, g.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *models.Grievance) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}
