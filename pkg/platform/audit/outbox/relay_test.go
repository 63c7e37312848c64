package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"campusvote/pkg/platform/circuit"
)

const (
	selectPending = "SELECT id, payload"
	markPublished = "UPDATE outbox SET published_at"
	topic         = "audit.events"
)

type fakeProducer struct {
	mu     sync.Mutex
	keys   []string
	failAt int // 1-based call number that fails; 0 never fails
	calls  int
}

func (p *fakeProducer) Produce(_ context.Context, gotTopic string, key, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if gotTopic != topic {
		return errors.New("unexpected topic")
	}
	if p.failAt != 0 && p.calls >= p.failAt {
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, string(key))
	return nil
}

func newRelay(t *testing.T, producer Producer, opts ...Option) (*Relay, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewRelay(db, producer, topic, opts...), mock
}

func TestRelayBatch(t *testing.T) {
	t.Run("publishes pending rows and marks them", func(t *testing.T) {
		producer := &fakeProducer{}
		relay, mock := newRelay(t, producer)
		first, second := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectPending)).
			WithArgs(defaultBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
				AddRow(first.String(), []byte(`{"action":"vote_cast"}`)).
				AddRow(second.String(), []byte(`{"action":"user_login"}`)))
		mock.ExpectExec(regexp.QuoteMeta(markPublished)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		n, err := relay.RelayBatch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []string{first.String(), second.String()}, producer.keys)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing pending", func(t *testing.T) {
		relay, mock := newRelay(t, &fakeProducer{})

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectPending)).
			WithArgs(defaultBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}))
		mock.ExpectRollback()

		n, err := relay.RelayBatch(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("marks rows published before a produce failure", func(t *testing.T) {
		producer := &fakeProducer{failAt: 2}
		relay, mock := newRelay(t, producer)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectPending)).
			WithArgs(defaultBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).
				AddRow(uuid.NewString(), []byte(`{}`)).
				AddRow(uuid.NewString(), []byte(`{}`)).
				AddRow(uuid.NewString(), []byte(`{}`)))
		mock.ExpectExec(regexp.QuoteMeta(markPublished)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		n, err := relay.RelayBatch(context.Background())
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, 2, producer.calls, "relay stops at the first failure")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("open breaker retries a single row", func(t *testing.T) {
		producer := &fakeProducer{failAt: 1}
		breaker := circuit.New("audit-relay", circuit.WithFailureThreshold(1))
		relay, mock := newRelay(t, producer, WithBreaker(breaker))

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectPending)).
			WithArgs(defaultBatchSize).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}).AddRow(uuid.NewString(), []byte(`{}`)))
		mock.ExpectRollback()

		_, err := relay.RelayBatch(context.Background())
		require.Error(t, err)
		require.True(t, breaker.IsOpen())

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectPending)).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "payload"}))
		mock.ExpectRollback()

		_, err = relay.RelayBatch(context.Background())
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	relay := NewRelay(nil, &fakeProducer{}, topic, WithInterval(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
