package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campusvote/internal/house/models"
	"campusvote/internal/platform/postgres"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

type PostgresHouseStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresHouseStore {
	return &PostgresHouseStore{db: db}
}

const houseColumns = `id, name, description, color, logo, members, secretaries, active, created_by, created_at, updated_at`

func (s *PostgresHouseStore) Create(ctx context.Context, house *models.House) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`INSERT INTO houses (`+houseColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		houseArgs(house)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert house: %w", err)
	}
	return nil
}

func (s *PostgresHouseStore) Update(ctx context.Context, house *models.House) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE houses SET
			name = $2, description = $3, color = $4, logo = $5, members = $6,
			secretaries = $7, active = $8, created_by = $9, created_at = $10, updated_at = $11
		WHERE id = $1`, houseArgs(house)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("update house: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update house: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresHouseStore) Delete(ctx context.Context, houseID id.HouseID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM houses WHERE id = $1`, uuid.UUID(houseID))
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresHouseStore) FindByID(ctx context.Context, houseID id.HouseID) (*models.House, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+houseColumns+` FROM houses WHERE id = $1`, uuid.UUID(houseID))
	h, err := scanHouse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find house: %w", err)
	}
	return h, nil
}

func (s *PostgresHouseStore) List(ctx context.Context, activeOnly bool) ([]*models.House, error) {
	query := `SELECT ` + houseColumns + ` FROM houses`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list houses: %w", err)
	}
	defer rows.Close()

	var out []*models.House
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan house: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func houseArgs(h *models.House) []any {
	return []any{
		uuid.UUID(h.ID), h.Name, h.Description, h.Color, h.Logo,
		postgres.UUIDArray(h.Members), postgres.UUIDArray(h.Secretaries),
		h.Active, uuid.UUID(h.CreatedBy), h.CreatedAt, h.UpdatedAt,
	}
}

func scanHouse(row interface{ Scan(...any) error }) (*models.House, error) {
	var (
		h                    models.House
		houseID, createdBy   uuid.UUID
		members, secretaries []string
	)
	if err := row.Scan(&houseID, &h.Name, &h.Description, &h.Color, &h.Logo,
		pq.Array(&members), pq.Array(&secretaries), &h.Active, &createdBy, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.ID = id.HouseID(houseID)
	h.CreatedBy = id.UserID(createdBy)
	var err error
	if h.Members, err = postgres.ParseUUIDs[id.UserID](members); err != nil {
		return nil, err
	}
	if h.Secretaries, err = postgres.ParseUUIDs[id.UserID](secretaries); err != nil {
		return nil, err
	}
	return &h, nil
}
