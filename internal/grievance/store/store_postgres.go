package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/grievance/models"
	"campusvote/internal/platform/postgres"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

type PostgresGrievanceStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresGrievanceStore {
	return &PostgresGrievanceStore{db: db}
}

type resolutionRow struct {
	Comment    string    `json:"comment"`
	ResolvedBy uuid.UUID `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

const grievanceColumns = `id, title, description, election_id, status, submitted_by, assigned_to, resolution, created_at, updated_at`

func (s *PostgresGrievanceStore) Create(ctx context.Context, g *models.Grievance) error {
	args, err := grievanceArgs(g)
	if err != nil {
		return err
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO grievances (`+grievanceColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert grievance: %w", err)
	}
	return nil
}

func (s *PostgresGrievanceStore) Update(ctx context.Context, g *models.Grievance) error {
	args, err := grievanceArgs(g)
	if err != nil {
		return err
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE grievances SET
			title = $2, description = $3, election_id = $4, status = $5, submitted_by = $6,
			assigned_to = $7, resolution = $8, created_at = $9, updated_at = $10
		WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("update grievance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update grievance: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresGrievanceStore) FindByID(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+grievanceColumns+` FROM grievances WHERE id = $1`, uuid.UUID(grievanceID))
	g, err := scanGrievance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find grievance: %w", err)
	}
	return g, nil
}

func (s *PostgresGrievanceStore) ListBySubmitter(ctx context.Context, userID id.UserID) ([]*models.Grievance, error) {
	return s.list(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE submitted_by = $1 ORDER BY created_at DESC`, uuid.UUID(userID))
}

func (s *PostgresGrievanceStore) List(ctx context.Context, status *models.Status) ([]*models.Grievance, error) {
	if status == nil {
		return s.list(ctx, `SELECT `+grievanceColumns+` FROM grievances ORDER BY created_at DESC`)
	}
	return s.list(ctx, `SELECT `+grievanceColumns+` FROM grievances WHERE status = $1 ORDER BY created_at DESC`, string(*status))
}

func (s *PostgresGrievanceStore) list(ctx context.Context, query string, args ...any) ([]*models.Grievance, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grievances: %w", err)
	}
	defer rows.Close()

	var out []*models.Grievance
	for rows.Next() {
		g, err := scanGrievance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grievance: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func grievanceArgs(g *models.Grievance) ([]any, error) {
	var electionID, assignedTo uuid.NullUUID
	if g.ElectionID != nil {
		electionID = uuid.NullUUID{UUID: uuid.UUID(*g.ElectionID), Valid: true}
	}
	if g.AssignedTo != nil {
		assignedTo = uuid.NullUUID{UUID: uuid.UUID(*g.AssignedTo), Valid: true}
	}
	var resolution any
	if g.Resolution != nil {
		raw, err := json.Marshal(resolutionRow{
			Comment:    g.Resolution.Comment,
			ResolvedBy: uuid.UUID(g.Resolution.ResolvedBy),
			ResolvedAt: g.Resolution.ResolvedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal grievance resolution: %w", err)
		}
		resolution = string(raw)
	}
	return []any{
		uuid.UUID(g.ID), g.Title, g.Description, electionID, string(g.Status),
		uuid.UUID(g.SubmittedBy), assignedTo, resolution, g.CreatedAt, g.UpdatedAt,
	}, nil
}

func scanGrievance(row interface{ Scan(...any) error }) (*models.Grievance, error) {
	var (
		g                      models.Grievance
		grievanceID, submitter uuid.UUID
		electionID, assignedTo uuid.NullUUID
		status                 string
		rawResolution          []byte
	)
	if err := row.Scan(&grievanceID, &g.Title, &g.Description, &electionID, &status,
		&submitter, &assignedTo, &rawResolution, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.ID = id.GrievanceID(grievanceID)
	g.SubmittedBy = id.UserID(submitter)
	g.Status = models.Status(status)
	if electionID.Valid {
		e := id.ElectionID(electionID.UUID)
		g.ElectionID = &e
	}
	if assignedTo.Valid {
		a := id.UserID(assignedTo.UUID)
		g.AssignedTo = &a
	}
	if len(rawResolution) > 0 {
		var r resolutionRow
		if err := json.Unmarshal(rawResolution, &r); err != nil {
			return nil, fmt.Errorf("decode grievance resolution: %w", err)
		}
		g.Resolution = &models.Resolution{
			Comment:    r.Comment,
			ResolvedBy: id.UserID(r.ResolvedBy),
			ResolvedAt: r.ResolvedAt,
		}
	}
	return &g, nil
}
