// Package authlockout stores failed sign-in counters. Stores apply the
// increment atomically; lock decisions belong to the service.
package authlockout

import (
	"context"
	"sync"
	"time"

	"campusvote/internal/ratelimit/models"
)

type InMemoryAuthLockoutStore struct {
	mu      sync.Mutex
	records map[string]*models.AuthLockout
}

func New() *InMemoryAuthLockoutStore {
	return &InMemoryAuthLockoutStore{records: make(map[string]*models.AuthLockout)}
}

// Get returns a copy of the record, or nil when there is none.
func (s *InMemoryAuthLockoutStore) Get(_ context.Context, identifier string) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	return clone(record), nil
}

// RecordFailure increments the counter, restarting it when the previous
// failure is older than cutoff or an earlier lock has run out.
func (s *InMemoryAuthLockoutStore) RecordFailure(_ context.Context, identifier string, now, cutoff time.Time) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identifier]
	switch {
	case !ok:
		record = &models.AuthLockout{Identifier: identifier}
		s.records[identifier] = record
	case record.StartsNewWindow(now, cutoff):
		record.FailureCount = 0
		record.LockedUntil = nil
	}
	record.FailureCount++
	record.LastFailureAt = now
	return clone(record), nil
}

func (s *InMemoryAuthLockoutStore) Lock(_ context.Context, identifier string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.records[identifier]; ok {
		record.LockedUntil = &until
	}
	return nil
}

func (s *InMemoryAuthLockoutStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}

// PurgeExpired drops records whose last failure and lock both end before cutoff.
func (s *InMemoryAuthLockoutStore) PurgeExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, record := range s.records {
		if record.LastFailureAt.Before(cutoff) && (record.LockedUntil == nil || record.LockedUntil.Before(cutoff)) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

func clone(record *models.AuthLockout) *models.AuthLockout {
	c := *record
	if record.LockedUntil != nil {
		until := *record.LockedUntil
		c.LockedUntil = &until
	}
	return &c
}
