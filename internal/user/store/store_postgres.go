package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"campusvote/internal/platform/postgres"
	"campusvote/internal/user/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	txcontext "campusvote/pkg/platform/tx"
)

// PostgresUserStore persists users in Postgres.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = `id, name, email, password_hash, student_id, role, house_id, society_ids,
		external_id, active, onboarded, password_changed_at, created_at, updated_at`

func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, userArgs(user)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			name = $2, email = $3, password_hash = $4, student_id = $5, role = $6,
			house_id = $7, society_ids = $8, external_id = $9, active = $10,
			onboarded = $11, password_changed_at = $12, created_at = $13, updated_at = $14
		WHERE id = $1`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query, userArgs(user)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE email = $1`, strings.ToLower(email))
}

func (s *PostgresUserStore) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	if externalID == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.findOne(ctx, `WHERE external_id = $1`, externalID)
}

func (s *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) FindByIDs(ctx context.Context, ids []id.UserID) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1::uuid[])`, postgres.UUIDArray(ids))
}

func (s *PostgresUserStore) List(ctx context.Context) ([]*models.User, error) {
	return s.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
}

func (s *PostgresUserStore) ClearHouse(ctx context.Context, houseID id.HouseID) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET house_id = NULL, updated_at = now() WHERE house_id = $1`, uuid.UUID(houseID))
	if err != nil {
		return fmt.Errorf("clear house members: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) RemoveSociety(ctx context.Context, societyID id.SocietyID) error {
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`UPDATE users SET society_ids = array_remove(society_ids, $1), updated_at = now() WHERE $1 = ANY(society_ids)`,
		uuid.UUID(societyID))
	if err != nil {
		return fmt.Errorf("remove society from users: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) query(ctx context.Context, query string, args ...any) ([]*models.User, error) {
	rows, err := txcontext.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func userArgs(u *models.User) []any {
	var houseID uuid.NullUUID
	if u.HouseID != nil {
		houseID = uuid.NullUUID{UUID: uuid.UUID(*u.HouseID), Valid: true}
	}
	var changedAt sql.NullTime
	if u.PasswordChangedAt != nil {
		changedAt = sql.NullTime{Time: *u.PasswordChangedAt, Valid: true}
	}
	return []any{
		uuid.UUID(u.ID), u.Name, u.Email, u.PasswordHash, u.StudentID, string(u.Role),
		houseID, postgres.UUIDArray(u.SocietyIDs), u.ExternalID, u.Active, u.Onboarded,
		changedAt, u.CreatedAt, u.UpdatedAt,
	}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u         models.User
		userID    uuid.UUID
		role      string
		houseID   uuid.NullUUID
		societies []string
		changedAt sql.NullTime
	)
	err := row.Scan(
		&userID, &u.Name, &u.Email, &u.PasswordHash, &u.StudentID, &role,
		&houseID, pq.Array(&societies), &u.ExternalID, &u.Active, &u.Onboarded,
		&changedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.ID = id.UserID(userID)
	u.Role = id.Role(role)
	if houseID.Valid {
		h := id.HouseID(houseID.UUID)
		u.HouseID = &h
	}
	if u.SocietyIDs, err = postgres.ParseUUIDs[id.SocietyID](societies); err != nil {
		return nil, err
	}
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
