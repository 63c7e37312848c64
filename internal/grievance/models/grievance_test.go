package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

func TestNewGrievance(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	submitter := id.UserID(uuid.New())

	t.Run("starts pending with trimmed fields", func(t *testing.T) {
		g, err := NewGrievance(id.GrievanceID(uuid.New()), "  Ballot box  ", " Closed early ", nil, submitter, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, g.Status)
		assert.Equal(t, "Ballot box", g.Title)
		assert.Equal(t, "Closed early", g.Description)
		assert.Nil(t, g.Resolution)
	})

	t.Run("requires title and description", func(t *testing.T) {
		_, err := NewGrievance(id.GrievanceID(uuid.New()), " ", "x", nil, submitter, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		_, err = NewGrievance(id.GrievanceID(uuid.New()), "x", "", nil, submitter, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "under-review", "resolved", "rejected"} {
		got, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), got)
	}
	_, err := ParseStatus("closed")
	assert.ErrorIs(t, err, dErrors.New(dErrors.CodeValidation, "invalid status value"))
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	admin := id.UserID(uuid.New())
	g, err := NewGrievance(id.GrievanceID(uuid.New()), "Ballot box", "Closed early", nil, id.UserID(uuid.New()), now)
	require.NoError(t, err)

	require.Error(t, g.Resolve("  ", admin, now))
	assert.Equal(t, StatusPending, g.Status)

	later := now.Add(time.Hour)
	require.NoError(t, g.Resolve("Reopened the booth", admin, later))
	assert.Equal(t, StatusResolved, g.Status)
	assert.Equal(t, &Resolution{Comment: "Reopened the booth", ResolvedBy: admin, ResolvedAt: later}, g.Resolution)

	c := g.Clone()
	c.Resolution.Comment = "changed"
	assert.Equal(t, "Reopened the booth", g.Resolution.Comment)
}
