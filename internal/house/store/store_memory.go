package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"campusvote/internal/house/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

type InMemoryHouseStore struct {
	mu     sync.RWMutex
	houses map[id.HouseID]*models.House
}

func NewInMemoryHouseStore() *InMemoryHouseStore {
	return &InMemoryHouseStore{houses: make(map[id.HouseID]*models.House)}
}

func (s *InMemoryHouseStore) Create(_ context.Context, house *models.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.houses[house.ID]; ok || s.nameTaken(house) {
		return sentinel.ErrAlreadyExists
	}
	s.houses[house.ID] = house.Clone()
	return nil
}

func (s *InMemoryHouseStore) Update(_ context.Context, house *models.House) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.houses[house.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.nameTaken(house) {
		return sentinel.ErrAlreadyExists
	}
	s.houses[house.ID] = house.Clone()
	return nil
}

func (s *InMemoryHouseStore) nameTaken(house *models.House) bool {
	for _, other := range s.houses {
		if other.ID != house.ID && strings.EqualFold(other.Name, house.Name) {
			return true
		}
	}
	return false
}

func (s *InMemoryHouseStore) Delete(_ context.Context, houseID id.HouseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.houses[houseID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.houses, houseID)
	return nil
}

func (s *InMemoryHouseStore) FindByID(_ context.Context, houseID id.HouseID) (*models.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.houses[houseID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return h.Clone(), nil
}

// List returns houses sorted by name. activeOnly hides deactivated houses.
func (s *InMemoryHouseStore) List(_ context.Context, activeOnly bool) ([]*models.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.House, 0, len(s.houses))
	for _, h := range s.houses {
		if activeOnly && !h.Active {
			continue
		}
		out = append(out, h.Clone())
	}
	slices.SortFunc(out, func(a, b *models.House) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
