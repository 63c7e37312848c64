package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
	audit "campusvote/pkg/platform/audit"
)

// payloadMatcher asserts the outbox payload carries the expected action and
// category without pinning the generated ID.
type payloadMatcher struct {
	action   string
	category audit.EventCategory
}

func (m payloadMatcher) Match(v driver.Value) bool {
	raw, ok := v.(string)
	if !ok {
		return false
	}
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return false
	}
	return p.Action == m.action && p.Category == string(m.category)
}

func TestAppendWritesOutboxRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	userID := id.UserID(uuid.New())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(
			sqlmock.AnyArg(),
			"user",
			userID.String(),
			string(audit.EventVoteCast),
			payloadMatcher{action: string(audit.EventVoteCast), category: audit.CategoryCompliance},
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	err = store.Append(context.Background(), audit.Event{
		UserID: userID,
		Action: string(audit.EventVoteCast),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendWithoutUserUsesAuditAggregate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).
		WithArgs(eventID, "audit", eventID.String(), string(audit.EventElectionCreated), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = New(db).Append(context.Background(), audit.Event{
		ID:     eventID.String(),
		Action: string(audit.EventElectionCreated),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentScansRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()
	userID := uuid.New()
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "category", "timestamp", "user_id", "subject", "action",
		"reason", "email", "request_id", "actor_id",
	}).
		AddRow(eventID.String(), "compliance", ts, userID.String(), "election-1", "vote_cast", "President", "", "req-1", "").
		AddRow(uuid.NewString(), "operations", ts, nil, "election-1", "election_created", "", "", "", "")

	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events")).
		WithArgs(2).
		WillReturnRows(rows)

	events, err := New(db).ListRecent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, eventID.String(), events[0].ID)
	assert.Equal(t, id.UserID(userID), events[0].UserID)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, "President", events[0].Reason)
	assert.True(t, events[1].UserID.IsNil())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayloadRoundTripKeepsUser(t *testing.T) {
	userID := id.UserID(uuid.New())
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := audit.Event{
		ID:        uuid.NewString(),
		Category:  audit.CategorySecurity,
		Timestamp: ts,
		UserID:    userID,
		Action:    string(audit.EventAdminLogin),
	}

	got := ToPayload(event).Event()
	assert.Equal(t, event, got)
}
