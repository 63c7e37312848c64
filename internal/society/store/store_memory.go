package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"campusvote/internal/society/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

type InMemorySocietyStore struct {
	mu        sync.RWMutex
	societies map[id.SocietyID]*models.Society
}

func NewInMemorySocietyStore() *InMemorySocietyStore {
	return &InMemorySocietyStore{societies: make(map[id.SocietyID]*models.Society)}
}

func (s *InMemorySocietyStore) Create(_ context.Context, society *models.Society) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.societies[society.ID]; ok || s.nameTaken(society) {
		return sentinel.ErrAlreadyExists
	}
	s.societies[society.ID] = society.Clone()
	return nil
}

func (s *InMemorySocietyStore) Update(_ context.Context, society *models.Society) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.societies[society.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTaken(society) {
		return sentinel.ErrAlreadyExists
	}
	s.societies[society.ID] = society.Clone()
	return nil
}

func (s *InMemorySocietyStore) nameTaken(society *models.Society) bool {
	for _, other := range s.societies {
		if other.ID != society.ID && strings.EqualFold(other.Name, society.Name) {
			return true
		}
	}
	return false
}

func (s *InMemorySocietyStore) Delete(_ context.Context, societyID id.SocietyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.societies[societyID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.societies, societyID)
	return nil
}

func (s *InMemorySocietyStore) FindByID(_ context.Context, societyID id.SocietyID) (*models.Society, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	society, ok := s.societies[societyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return society.Clone(), nil
}

// List returns societies sorted by name, optionally filtered by category.
func (s *InMemorySocietyStore) List(_ context.Context, category models.Category) ([]*models.Society, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Society, 0, len(s.societies))
	for _, society := range s.societies {
		if category != "" && society.Category != category {
			continue
		}
		out = append(out, society.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Society) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
