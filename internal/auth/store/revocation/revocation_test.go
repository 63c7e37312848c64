package revocation

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/pkg/platform/sentinel"
)

func TestInMemoryTRL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(func() time.Time { return now })

	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))
	revoked, err := trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = trl.IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	assert.ErrorIs(t, trl.RevokeToken(ctx, "jti-3", 0), sentinel.ErrInvalidState)

	now = now.Add(2 * time.Hour)
	revoked, err = trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse with the token")
}

func TestTTLFor(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		expiresAt time.Time
		want      time.Duration
	}{
		{"whole seconds kept", now.Add(50 * time.Minute), 50 * time.Minute},
		{"fraction rounds up", now.Add(1500 * time.Millisecond), 2 * time.Second},
		{"expiring now", now, 0},
		{"already expired", now.Add(-time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TTLFor(tt.expiresAt, now))
		})
	}
}

func TestInMemoryTRLPurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	trl := NewInMemoryTRL(func() time.Time { return now })
	require.NoError(t, trl.RevokeToken(ctx, "short", time.Minute))
	require.NoError(t, trl.RevokeToken(ctx, "long", time.Hour))

	now = now.Add(10 * time.Minute)
	n, err := trl.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revoked, err := trl.IsTokenRevoked(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestPostgresTRL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	trl := NewPostgresTRL(db, WithPostgresClock(func() time.Time { return now }))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO token_revocations (jti, expires_at)")).
		WithArgs("jti-1", now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT expires_at FROM token_revocations WHERE jti = $1")).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(now.Add(time.Hour)))
	revoked, err := trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT expires_at FROM token_revocations WHERE jti = $1")).
		WithArgs("jti-old").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(now.Add(-time.Minute)))
	revoked, err = trl.IsTokenRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT expires_at FROM token_revocations WHERE jti = $1")).
		WithArgs("jti-none").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}))
	revoked, err = trl.IsTokenRevoked(ctx, "jti-none")
	require.NoError(t, err)
	assert.False(t, revoked)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM token_revocations WHERE expires_at < $1")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := trl.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}
