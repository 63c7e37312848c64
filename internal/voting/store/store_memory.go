package store

import (
	"context"
	"slices"
	"sync"

	"campusvote/internal/voting/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

type ballotKey struct {
	election id.ElectionID
	position string
	voter    id.UserID
}

// InMemoryVoteStore checks and inserts under one mutex so that concurrent
// ballots for the same key cannot both land.
type InMemoryVoteStore struct {
	mu     sync.Mutex
	votes  []*models.Vote
	ballot map[ballotKey]struct{}
}

func NewInMemoryVoteStore() *InMemoryVoteStore {
	return &InMemoryVoteStore{ballot: make(map[ballotKey]struct{})}
}

func (s *InMemoryVoteStore) Create(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ballotKey{election: vote.ElectionID, position: vote.Position.Title(), voter: vote.VoterID}
	if _, ok := s.ballot[key]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.ballot[key] = struct{}{}
	stored := *vote
	s.votes = append(s.votes, &stored)
	return nil
}

// ListByElection returns every vote of the election in insertion order.
func (s *InMemoryVoteStore) ListByElection(_ context.Context, electionID id.ElectionID) ([]*models.Vote, error) {
	return s.filter(func(v *models.Vote) bool { return v.ElectionID == electionID }), nil
}

// ListByVoter returns the voter's ballots, newest first.
func (s *InMemoryVoteStore) ListByVoter(_ context.Context, voterID id.UserID) ([]*models.Vote, error) {
	out := s.filter(func(v *models.Vote) bool { return v.VoterID == voterID })
	slices.SortStableFunc(out, func(a, b *models.Vote) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *InMemoryVoteStore) filter(match func(*models.Vote) bool) []*models.Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Vote
	for _, v := range s.votes {
		if match(v) {
			c := *v
			out = append(out, &c)
		}
	}
	return out
}
