package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/grievance/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

func newGrievance(t *testing.T, submitter id.UserID, at time.Time) *models.Grievance {
	t.Helper()
	g, err := models.NewGrievance(id.GrievanceID(uuid.New()), "Ballot box", "Closed early", nil, submitter, at)
	require.NoError(t, err)
	return g
}

func TestInMemoryGrievanceStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryGrievanceStore()
	alice, bob := id.UserID(uuid.New()), id.UserID(uuid.New())
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	older := newGrievance(t, alice, at)
	newer := newGrievance(t, alice, at.Add(time.Hour))
	other := newGrievance(t, bob, at.Add(2*time.Hour))
	for _, g := range []*models.Grievance{older, newer, other} {
		require.NoError(t, s.Create(ctx, g))
	}
	assert.ErrorIs(t, s.Create(ctx, older), sentinel.ErrAlreadyExists)

	mine, err := s.ListBySubmitter(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)

	require.NoError(t, other.Resolve("Handled", alice, at.Add(3*time.Hour)))
	require.NoError(t, s.Update(ctx, other))
	resolved := models.StatusResolved
	got, err := s.List(ctx, &resolved)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	all, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	got[0].Resolution.Comment = "mutated"
	stored, err := s.FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Handled", stored.Resolution.Comment)

	_, err = s.FindByID(ctx, id.GrievanceID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

var columns = []string{"id", "title", "description", "election_id", "status", "submitted_by",
	"assigned_to", "resolution", "created_at", "updated_at"}

func TestPostgresGrievanceResolutionRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	grievanceID, submitter, admin := uuid.New(), uuid.New(), uuid.New()
	at := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	resolution, err := json.Marshal(resolutionRow{Comment: "Handled", ResolvedBy: admin, ResolvedAt: at})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE id = $1")).
		WithArgs(grievanceID).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			grievanceID.String(), "Ballot box", "Closed early", nil, "resolved", submitter.String(),
			nil, resolution, at, at))

	got, err := NewPostgres(db).FindByID(context.Background(), id.GrievanceID(grievanceID))
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Nil(t, got.ElectionID)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, id.UserID(admin), got.Resolution.ResolvedBy)
	assert.True(t, at.Equal(got.Resolution.ResolvedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGrievanceListByStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM grievances WHERE status = $1 ORDER BY created_at DESC")).
		WithArgs("under-review").
		WillReturnRows(sqlmock.NewRows(columns))

	status := models.StatusUnderReview
	got, err := NewPostgres(db).List(context.Background(), &status)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGrievanceUpdateMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	g := newGrievance(t, id.UserID(uuid.New()), time.Now())
	mock.ExpectExec(regexp.QuoteMeta("UPDATE grievances SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).Update(context.Background(), g)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
