package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/election/models"
	"campusvote/internal/platform/postgres"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

type PostgresElectionStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresElectionStore {
	return &PostgresElectionStore{db: db}
}

// positionRow and candidateRow are the JSONB shape of election positions.
type positionRow struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Candidates  []candidateRow `json:"candidates"`
}

type candidateRow struct {
	UserID      uuid.UUID  `json:"user"`
	Approved    bool       `json:"approved"`
	ApprovedBy  *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	Manifesto   string     `json:"manifesto,omitempty"`
	NominatedAt time.Time  `json:"nominatedAt"`
}

const electionColumns = `id, title, description, type, status, house_id, society_id, positions,
	nomination_start, nomination_end, voting_start, voting_end, results_released_at,
	created_by, created_at, updated_at`

func (s *PostgresElectionStore) Create(ctx context.Context, election *models.Election) error {
	args, err := electionArgs(election)
	if err != nil {
		return err
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO elections (`+electionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert election: %w", err)
	}
	return nil
}

func (s *PostgresElectionStore) Update(ctx context.Context, election *models.Election) error {
	args, err := electionArgs(election)
	if err != nil {
		return err
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE elections SET
			title = $2, description = $3, type = $4, status = $5, house_id = $6, society_id = $7,
			positions = $8, nomination_start = $9, nomination_end = $10, voting_start = $11,
			voting_end = $12, results_released_at = $13, created_by = $14, created_at = $15, updated_at = $16
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update election: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresElectionStore) Delete(ctx context.Context, electionID id.ElectionID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM elections WHERE id = $1`, uuid.UUID(electionID))
	if err != nil {
		return fmt.Errorf("delete election: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete election: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresElectionStore) FindByID(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	return s.findOne(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1`, electionID)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends.
func (s *PostgresElectionStore) FindByIDForUpdate(ctx context.Context, electionID id.ElectionID) (*models.Election, error) {
	return s.findOne(ctx, `SELECT `+electionColumns+` FROM elections WHERE id = $1 FOR UPDATE`, electionID)
}

func (s *PostgresElectionStore) findOne(ctx context.Context, query string, electionID id.ElectionID) (*models.Election, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(electionID))
	election, err := scanElection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find election: %w", err)
	}
	return election, nil
}

// List returns matching elections, newest first.
func (s *PostgresElectionStore) List(ctx context.Context, filter Filter) ([]*models.Election, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.HouseID != nil {
		add("house_id = $%d", uuid.UUID(*filter.HouseID))
	}
	if filter.SocietyID != nil {
		add("society_id = $%d", uuid.UUID(*filter.SocietyID))
	}

	query := `SELECT ` + electionColumns + ` FROM elections`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}
	defer rows.Close()

	var out []*models.Election
	for rows.Next() {
		election, err := scanElection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan election: %w", err)
		}
		out = append(out, election)
	}
	return out, rows.Err()
}

func electionArgs(e *models.Election) ([]any, error) {
	positions := make([]positionRow, 0, len(e.Positions))
	for _, p := range e.Positions {
		row := positionRow{Title: p.Title, Description: p.Description, Candidates: []candidateRow{}}
		for _, c := range p.Candidates {
			cr := candidateRow{
				UserID:      uuid.UUID(c.UserID),
				Approved:    c.Approved,
				ApprovedAt:  c.ApprovedAt,
				Manifesto:   c.Manifesto,
				NominatedAt: c.NominatedAt,
			}
			if c.ApprovedBy != nil {
				by := uuid.UUID(*c.ApprovedBy)
				cr.ApprovedBy = &by
			}
			row.Candidates = append(row.Candidates, cr)
		}
		positions = append(positions, row)
	}
	raw, err := json.Marshal(positions)
	if err != nil {
		return nil, fmt.Errorf("marshal election positions: %w", err)
	}

	var houseID, societyID uuid.NullUUID
	if e.HouseID != nil {
		houseID = uuid.NullUUID{UUID: uuid.UUID(*e.HouseID), Valid: true}
	}
	if e.SocietyID != nil {
		societyID = uuid.NullUUID{UUID: uuid.UUID(*e.SocietyID), Valid: true}
	}
	var released sql.NullTime
	if e.ResultsReleasedAt != nil {
		released = sql.NullTime{Time: *e.ResultsReleasedAt, Valid: true}
	}
	return []any{
		uuid.UUID(e.ID), e.Title, e.Description, string(e.Type), string(e.Status), houseID, societyID,
		string(raw), e.NominationStart, e.NominationEnd, e.VotingStart, e.VotingEnd, released,
		uuid.UUID(e.CreatedBy), e.CreatedAt, e.UpdatedAt,
	}, nil
}

func scanElection(row interface{ Scan(...any) error }) (*models.Election, error) {
	var (
		e                   models.Election
		electionID, creator uuid.UUID
		kind, status        string
		houseID, societyID  uuid.NullUUID
		rawPositions        []byte
		released            sql.NullTime
	)
	if err := row.Scan(&electionID, &e.Title, &e.Description, &kind, &status, &houseID, &societyID,
		&rawPositions, &e.NominationStart, &e.NominationEnd, &e.VotingStart, &e.VotingEnd, &released,
		&creator, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	var positions []positionRow
	if err := json.Unmarshal(rawPositions, &positions); err != nil {
		return nil, fmt.Errorf("decode election positions: %w", err)
	}

	e.ID = id.ElectionID(electionID)
	e.CreatedBy = id.UserID(creator)
	e.Type = models.Type(kind)
	e.Status = models.Status(status)
	if houseID.Valid {
		h := id.HouseID(houseID.UUID)
		e.HouseID = &h
	}
	if societyID.Valid {
		s := id.SocietyID(societyID.UUID)
		e.SocietyID = &s
	}
	if released.Valid {
		t := released.Time
		e.ResultsReleasedAt = &t
	}
	for _, p := range positions {
		pos := models.Position{Title: p.Title, Description: p.Description}
		for _, c := range p.Candidates {
			cand := models.Candidate{
				UserID:      id.UserID(c.UserID),
				Approved:    c.Approved,
				ApprovedAt:  c.ApprovedAt,
				Manifesto:   c.Manifesto,
				NominatedAt: c.NominatedAt,
			}
			if c.ApprovedBy != nil {
				by := id.UserID(*c.ApprovedBy)
				cand.ApprovedBy = &by
			}
			pos.Candidates = append(pos.Candidates, cand)
		}
		e.Positions = append(e.Positions, pos)
	}
	return &e, nil
}
