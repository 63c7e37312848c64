package authlockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusvote/internal/ratelimit/models"
)

// PostgresStore shares lockout counters between API instances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, identifier string) (*models.AuthLockout, error) {
	query := `
		SELECT identifier, failure_count, locked_until, last_failure_at
		FROM auth_lockouts
		WHERE identifier = $1
	`
	record, err := scanAuthLockout(s.db.QueryRowContext(ctx, query, identifier))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get auth lockout: %w", err)
	}
	return record, nil
}

// RecordFailure increments in a single upsert so concurrent failures cannot
// slip past the threshold.
func (s *PostgresStore) RecordFailure(ctx context.Context, identifier string, now, cutoff time.Time) (*models.AuthLockout, error) {
	query := `
		INSERT INTO auth_lockouts (identifier, failure_count, locked_until, last_failure_at)
		VALUES ($1, 1, NULL, $2)
		ON CONFLICT (identifier) DO UPDATE SET
			failure_count = CASE
				WHEN auth_lockouts.last_failure_at < $3
				  OR (auth_lockouts.locked_until IS NOT NULL AND auth_lockouts.locked_until <= $2)
				THEN 1
				ELSE auth_lockouts.failure_count + 1
			END,
			locked_until = CASE
				WHEN auth_lockouts.locked_until IS NOT NULL AND auth_lockouts.locked_until <= $2 THEN NULL
				ELSE auth_lockouts.locked_until
			END,
			last_failure_at = $2
		RETURNING identifier, failure_count, locked_until, last_failure_at
	`
	record, err := scanAuthLockout(s.db.QueryRowContext(ctx, query, identifier, now, cutoff))
	if err != nil {
		return nil, fmt.Errorf("record auth failure: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Lock(ctx context.Context, identifier string, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE auth_lockouts SET locked_until = $2 WHERE identifier = $1`, identifier, until)
	if err != nil {
		return fmt.Errorf("lock auth identifier: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, identifier string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_lockouts WHERE identifier = $1`, identifier)
	if err != nil {
		return fmt.Errorf("clear auth lockout: %w", err)
	}
	return nil
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM auth_lockouts
		WHERE last_failure_at < $1
		  AND (locked_until IS NULL OR locked_until < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge auth lockouts: %w", err)
	}
	return res.RowsAffected()
}

type authLockoutRow interface {
	Scan(dest ...any) error
}

func scanAuthLockout(row authLockoutRow) (*models.AuthLockout, error) {
	var record models.AuthLockout
	var lockedUntil sql.NullTime
	if err := row.Scan(&record.Identifier, &record.FailureCount, &lockedUntil, &record.LastFailureAt); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		record.LockedUntil = &lockedUntil.Time
	}
	return &record, nil
}
