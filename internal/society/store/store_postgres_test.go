package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/society/models"
	id "campusvote/pkg/domain"
	"campusvote/pkg/platform/sentinel"
)

func TestPostgresSocietyMembersRoundTrip(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	societyID := uuid.New()
	lead := uuid.New()
	joined := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	members, err := json.Marshal([]memberRow{{UserID: lead, Role: "lead", JoinedAt: joined}})
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "name", "description", "category", "logo", "members",
		"active", "created_by", "created_at", "updated_at"}).
		AddRow(societyID.String(), "Robotics", "", "technical", "", members, true, lead.String(), joined, joined)
	mock.ExpectQuery(regexp.QuoteMeta("FROM societies WHERE id = $1")).
		WithArgs(societyID).
		WillReturnRows(rows)

	got, err := NewPostgres(db).FindByID(context.Background(), id.SocietyID(societyID))
	require.NoError(t, err)
	assert.Equal(t, models.CategoryTechnical, got.Category)
	assert.Equal(t, []id.UserID{id.UserID(lead)}, got.Leads())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSocietyDuplicateName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO societies")).
		WillReturnError(&pq.Error{Code: "23505"})

	society, err := models.NewSociety(id.SocietyID(uuid.New()), "Robotics", "", models.CategoryTechnical, "",
		id.UserID(uuid.New()), time.Now())
	require.NoError(t, err)

	err = NewPostgres(db).Create(context.Background(), society)
	assert.ErrorIs(t, err, sentinel.ErrAlreadyExists)
}

func TestPostgresSocietyDeleteMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	missing := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM societies")).
		WithArgs(missing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewPostgres(db).Delete(context.Background(), id.SocietyID(missing))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
