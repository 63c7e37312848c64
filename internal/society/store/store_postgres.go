package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/platform/postgres"
	"campusvote/internal/society/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

type PostgresSocietyStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresSocietyStore {
	return &PostgresSocietyStore{db: db}
}

// memberRow is the JSONB shape of a society member.
type memberRow struct {
	UserID   uuid.UUID `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

const societyColumns = `id, name, description, category, logo, members, active, created_by, created_at, updated_at`

func (s *PostgresSocietyStore) Create(ctx context.Context, society *models.Society) error {
	args, err := societyArgs(society)
	if err != nil {
		return err
	}
	_, err = txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO societies (`+societyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert society: %w", err)
	}
	return nil
}

func (s *PostgresSocietyStore) Update(ctx context.Context, society *models.Society) error {
	args, err := societyArgs(society)
	if err != nil {
		return err
	}
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE societies SET
			name = $2, description = $3, category = $4, logo = $5, members = $6,
			active = $7, created_by = $8, created_at = $9, updated_at = $10
		WHERE id = $1`, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("update society: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("update society: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresSocietyStore) Delete(ctx context.Context, societyID id.SocietyID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM societies WHERE id = $1`, uuid.UUID(societyID))
	if err != nil {
		return fmt.Errorf("delete society: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete society: %w", err)
	} else if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresSocietyStore) FindByID(ctx context.Context, societyID id.SocietyID) (*models.Society, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE id = $1`, uuid.UUID(societyID))
	society, err := scanSociety(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find society: %w", err)
	}
	return society, nil
}

func (s *PostgresSocietyStore) List(ctx context.Context, category models.Category) ([]*models.Society, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+societyColumns+` FROM societies WHERE ($1 = '' OR category = $1) ORDER BY name`, string(category))
	if err != nil {
		return nil, fmt.Errorf("list societies: %w", err)
	}
	defer rows.Close()

	var out []*models.Society
	for rows.Next() {
		society, err := scanSociety(rows)
		if err != nil {
			return nil, fmt.Errorf("scan society: %w", err)
		}
		out = append(out, society)
	}
	return out, rows.Err()
}

func societyArgs(society *models.Society) ([]any, error) {
	members := make([]memberRow, 0, len(society.Members))
	for _, m := range society.Members {
		members = append(members, memberRow{UserID: uuid.UUID(m.UserID), Role: string(m.Role), JoinedAt: m.JoinedAt})
	}
	raw, err := json.Marshal(members)
	if err != nil {
		return nil, fmt.Errorf("marshal society members: %w", err)
	}
	return []any{
		uuid.UUID(society.ID), society.Name, society.Description, string(society.Category), society.Logo,
		string(raw), society.Active, uuid.UUID(society.CreatedBy), society.CreatedAt, society.UpdatedAt,
	}, nil
}

func scanSociety(row interface{ Scan(...any) error }) (*models.Society, error) {
	var (
		society              models.Society
		societyID, createdBy uuid.UUID
		category             string
		rawMembers           []byte
	)
	if err := row.Scan(&societyID, &society.Name, &society.Description, &category, &society.Logo,
		&rawMembers, &society.Active, &createdBy, &society.CreatedAt, &society.UpdatedAt); err != nil {
		return nil, err
	}
	var members []memberRow
	if err := json.Unmarshal(rawMembers, &members); err != nil {
		return nil, fmt.Errorf("decode society members: %w", err)
	}
	society.ID = id.SocietyID(societyID)
	society.CreatedBy = id.UserID(createdBy)
	society.Category = models.Category(category)
	for _, m := range members {
		society.Members = append(society.Members, models.Member{
			UserID:   id.UserID(m.UserID),
			Role:     models.MemberRole(m.Role),
			JoinedAt: m.JoinedAt,
		})
	}
	return &society, nil
}
