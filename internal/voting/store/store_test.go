package store

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/voting/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

func newVote(electionID id.ElectionID, position string, voter id.UserID, at time.Time) *models.Vote {
	return &models.Vote{
		ID:          id.VoteID(uuid.New()),
		ElectionID:  electionID,
		Position:    models.NewPositionRef(position),
		CandidateID: id.UserID(uuid.New()),
		VoterID:     voter,
		CreatedAt:   at,
	}
}

func TestInMemoryVoteStoreOneBallotPerPosition(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryVoteStore()
	electionID := id.ElectionID(uuid.New())
	voter := id.UserID(uuid.New())
	now := time.Now()

	require.NoError(t, s.Create(ctx, newVote(electionID, "President", voter, now)))
	assert.ErrorIs(t, s.Create(ctx, newVote(electionID, " President ", voter, now)), sentinel.ErrAlreadyExists)
	require.NoError(t, s.Create(ctx, newVote(electionID, "Secretary", voter, now.Add(time.Second))))
	require.NoError(t, s.Create(ctx, newVote(electionID, "President", id.UserID(uuid.New()), now)))

	mine, err := s.ListByVoter(ctx, voter)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Secretary", mine[0].Position.Title())

	all, err := s.ListByElection(ctx, electionID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInMemoryVoteStoreConcurrentDuplicates(t *testing.T) {
	s := NewInMemoryVoteStore()
	electionID := id.ElectionID(uuid.New())
	voter := id.UserID(uuid.New())

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Create(context.Background(), newVote(electionID, "President", voter, time.Now())) == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), accepted.Load())
}

func TestPostgresVoteStoreDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO votes")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "votes_one_per_position"})

	v := newVote(id.ElectionID(uuid.New()), "President", id.UserID(uuid.New()), time.Now())
	err = NewPostgres(db).Create(context.Background(), v)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)
}

func TestPostgresVoteStoreListByElection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	electionID, candidate, voter := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2026, 9, 5, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "election_id", "position_title", "candidate_id", "voter_id", "client_hash", "created_at"}).
		AddRow(uuid.NewString(), electionID.String(), "Secretary", candidate.String(), voter.String(), "abc", at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM votes WHERE election_id = $1")).
		WithArgs(electionID).
		WillReturnRows(rows)

	got, err := NewPostgres(db).ListByElection(context.Background(), id.ElectionID(electionID))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Secretary", got[0].Position.Title())
	assert.Equal(t, id.UserID(candidate), got[0].CandidateID)
	require.NoError(t, mock.ExpectationsWereMet())
}
