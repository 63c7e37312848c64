package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"campusvote/internal/user/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in a map. Uniqueness of email, student id and
// external id is checked under the write lock.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*models.User)}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	if s.conflicts(user) {
		return sentinel.ErrAlreadyExists
	}
	s.users[user.ID] = user.Clone()
	return nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.conflicts(user) {
		return sentinel.ErrAlreadyExists
	}
	s.users[user.ID] = user.Clone()
	return nil
}

// conflicts reports whether another user already holds one of user's unique
// keys. Caller holds the lock.
func (s *InMemoryUserStore) conflicts(user *models.User) bool {
	for _, other := range s.users {
		if other.ID == user.ID {
			continue
		}
		if other.Email == user.Email {
			return true
		}
		if user.StudentID != "" && other.StudentID == user.StudentID {
			return true
		}
		if user.ExternalID != "" && other.ExternalID == user.ExternalID {
			return true
		}
	}
	return false
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findBy(func(u *models.User) bool { return u.Email == strings.ToLower(email) })
}

func (s *InMemoryUserStore) FindByExternalID(_ context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findBy(func(u *models.User) bool { return u.ExternalID == externalID })
}

func (s *InMemoryUserStore) findBy(match func(*models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindByIDs returns the users that exist among ids, in no particular order.
func (s *InMemoryUserStore) FindByIDs(_ context.Context, ids []id.UserID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(ids))
	for _, userID := range ids {
		if u, ok := s.users[userID]; ok {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}

// List returns all users, newest first.
func (s *InMemoryUserStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	slices.SortFunc(out, func(a, b *models.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// ClearHouse detaches every member of houseID.
func (s *InMemoryUserStore) ClearHouse(_ context.Context, houseID id.HouseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.HouseID != nil && *u.HouseID == houseID {
			u.HouseID = nil
		}
	}
	return nil
}

// RemoveSociety drops societyID from every user.
func (s *InMemoryUserStore) RemoveSociety(_ context.Context, societyID id.SocietyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		u.LeaveSociety(societyID)
	}
	return nil
}
