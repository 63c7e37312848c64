package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"campusvote/internal/platform/postgres"
	"campusvote/internal/voting/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

// PostgresVoteStore relies on the votes_one_per_position constraint for
// ballot uniqueness.
type PostgresVoteStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresVoteStore {
	return &PostgresVoteStore{db: db}
}

const voteColumns = `id, election_id, position_title, candidate_id, voter_id, client_hash, created_at`

func (s *PostgresVoteStore) Create(ctx context.Context, vote *models.Vote) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO votes (`+voteColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.UUID(vote.ID), uuid.UUID(vote.ElectionID), vote.Position.Title(), uuid.UUID(vote.CandidateID),
		uuid.UUID(vote.VoterID), vote.ClientHash, vote.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

func (s *PostgresVoteStore) ListByElection(ctx context.Context, electionID id.ElectionID) ([]*models.Vote, error) {
	return s.list(ctx, `SELECT `+voteColumns+` FROM votes WHERE election_id = $1 ORDER BY created_at, id`, uuid.UUID(electionID))
}

func (s *PostgresVoteStore) ListByVoter(ctx context.Context, voterID id.UserID) ([]*models.Vote, error) {
	return s.list(ctx, `SELECT `+voteColumns+` FROM votes WHERE voter_id = $1 ORDER BY created_at DESC`, uuid.UUID(voterID))
}

func (s *PostgresVoteStore) list(ctx context.Context, query string, arg any) ([]*models.Vote, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var out []*models.Vote
	for rows.Next() {
		var (
			v                                    models.Vote
			voteID, electionID, candidate, voter uuid.UUID
			title                                string
		)
		if err := rows.Scan(&voteID, &electionID, &title, &candidate, &voter, &v.ClientHash, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		v.ID = id.VoteID(voteID)
		v.ElectionID = id.ElectionID(electionID)
		v.Position = models.NewPositionRef(title)
		v.CandidateID = id.UserID(candidate)
		v.VoterID = id.UserID(voter)
		out = append(out, &v)
	}
	return out, rows.Err()
}
