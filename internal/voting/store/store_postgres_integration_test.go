//go:build integration

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/platform/postgres"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/testutil/containers"
)

func TestPostgresVoteStoreConcurrentDuplicates(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, pg.DB, slog.New(slog.NewTextHandler(io.Discard, nil))))

	electionID := id.ElectionID(uuid.New())
	now := time.Now().UTC()
	_, err := pg.DB.ExecContext(ctx, `
		INSERT INTO elections (id, title, type, status, nomination_start, nomination_end,
			voting_start, voting_end, created_by, created_at, updated_at)
		VALUES ($1, 'General', 'general', 'active', $2, $2, $2, $3, $4, $2, $2)
	`, uuid.UUID(electionID), now.Add(-time.Hour), now.Add(time.Hour), uuid.New())
	require.NoError(t, err)

	s := NewPostgres(pg.DB)
	voter := id.UserID(uuid.New())

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		accepted   int
		duplicates int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Create(ctx, newVote(electionID, "President", voter, time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, sentinel.ErrAlreadyExists):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 19, duplicates)

	votes, err := s.ListByElection(ctx, electionID)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, voter, votes[0].VoterID)
}
