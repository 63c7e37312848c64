package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusvote/internal/platform/kafka/consumer"
	id "campusvote/pkg/domain"
	audit "campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/audit/store/postgres"
)

type recordingStore struct {
	ids    []uuid.UUID
	events []audit.Event
	err    error
}

func (s *recordingStore) AppendWithID(_ context.Context, eventID uuid.UUID, event audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.ids = append(s.ids, eventID)
	s.events = append(s.events, event)
	return nil
}

type countingHandler struct{ calls int }

func (h *countingHandler) Handle(context.Context, *consumer.Message) error {
	h.calls++
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func outboxMessage(t *testing.T, eventID uuid.UUID, event audit.Event) *consumer.Message {
	t.Helper()
	value, err := json.Marshal(postgres.ToPayload(event))
	require.NoError(t, err)
	return &consumer.Message{Topic: "audit.events", Key: []byte(eventID.String()), Value: value}
}

func TestEventsHandler(t *testing.T) {
	t.Run("materializes the event under the message key", func(t *testing.T) {
		store := &recordingStore{}
		h := NewEventsHandler(store, discardLogger())
		eventID := uuid.New()
		userID := id.UserID(uuid.New())

		err := h.Handle(context.Background(), outboxMessage(t, eventID, audit.Event{
			UserID:   userID,
			Action:   string(audit.EventVoteCast),
			Category: audit.CategoryCompliance,
			Subject:  audit.ElectionSubject("election-1", "President"),
		}))
		require.NoError(t, err)
		require.Len(t, store.events, 1)
		assert.Equal(t, eventID, store.ids[0])
		assert.Equal(t, userID, store.events[0].UserID)
		assert.Equal(t, "election-1/President", store.events[0].Subject)
		assert.Equal(t, eventID.String(), store.events[0].ID)
	})

	t.Run("skips malformed keys and payloads", func(t *testing.T) {
		store := &recordingStore{}
		h := NewEventsHandler(store, discardLogger())

		require.NoError(t, h.Handle(context.Background(), &consumer.Message{Key: []byte("nope"), Value: []byte("{}")}))
		require.NoError(t, h.Handle(context.Background(), &consumer.Message{Key: []byte(uuid.NewString()), Value: []byte("{")}))
		assert.Empty(t, store.events)
	})

	t.Run("returns store errors for retry", func(t *testing.T) {
		store := &recordingStore{err: errors.New("db down")}
		h := NewEventsHandler(store, discardLogger())

		err := h.Handle(context.Background(), outboxMessage(t, uuid.New(), audit.Event{Action: string(audit.EventUserLogin)}))
		require.Error(t, err)
	})
}

type failingHandler struct{ calls int }

func (h *failingHandler) Handle(context.Context, *consumer.Message) error {
	h.calls++
	return errors.New("handler down")
}

func TestRouter(t *testing.T) {
	login := outboxMessage(t, uuid.New(), audit.Event{
		Action:   string(audit.EventAuthFailed),
		Category: audit.CategorySecurity,
	})
	vote := outboxMessage(t, uuid.New(), audit.Event{
		Action:   string(audit.EventVoteCast),
		Category: audit.CategoryCompliance,
	})

	t.Run("every message is materialized and security events fan out", func(t *testing.T) {
		all := &countingHandler{}
		security := &countingHandler{}
		r := NewRouter(discardLogger(), all)
		r.Register(audit.CategorySecurity, security)

		require.NoError(t, r.Handle(context.Background(), login))
		require.NoError(t, r.Handle(context.Background(), vote))
		require.NoError(t, r.Handle(context.Background(), &consumer.Message{Value: []byte("{")}))
		assert.Equal(t, 3, all.calls)
		assert.Equal(t, 1, security.calls)
	})

	t.Run("materialize failure skips category handlers for retry", func(t *testing.T) {
		all := &failingHandler{}
		security := &countingHandler{}
		r := NewRouter(discardLogger(), all)
		r.Register(audit.CategorySecurity, security)

		assert.Error(t, r.Handle(context.Background(), login))
		assert.Zero(t, security.calls)
	})

	t.Run("category handler failure is logged, not retried", func(t *testing.T) {
		security := &failingHandler{}
		r := NewRouter(discardLogger(), &countingHandler{})
		r.Register(audit.CategorySecurity, security)

		assert.NoError(t, r.Handle(context.Background(), login))
		assert.Equal(t, 1, security.calls)
	})
}

func TestSecurityHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewSecurityHandler(reg, discardLogger())
	require.NoError(t, err)

	for _, action := range []audit.AuditEvent{audit.EventAuthFailed, audit.EventAuthFailed, audit.EventAuthLockout} {
		msg := outboxMessage(t, uuid.New(), audit.Event{Action: string(action), Category: audit.CategorySecurity})
		require.NoError(t, h.Handle(context.Background(), msg))
	}
	assert.Equal(t, 2.0, promtestutil.ToFloat64(h.events.WithLabelValues(string(audit.EventAuthFailed))))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(h.events.WithLabelValues(string(audit.EventAuthLockout))))

	assert.Error(t, h.Handle(context.Background(), &consumer.Message{Value: []byte("{")}))

	_, err = NewSecurityHandler(reg, discardLogger())
	assert.Error(t, err, "the counter registers once per registry")
}
