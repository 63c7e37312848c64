package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	audit "campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/audit/store/memory"
)

type failingStore struct{ memory.InMemoryStore }

func (f *failingStore) Append(context.Context, audit.Event) error { return errors.New("disk full") }

func TestWorkerDrainsUntilInboxClosed(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 3)
	inbox <- audit.Event{Action: string(audit.EventVoteCast)}
	inbox <- audit.Event{Action: string(audit.EventVoteCast)}
	close(inbox)

	err := NewWorker(store, inbox, nil).Run(context.Background())
	require.NoError(t, err)

	events, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestWorkerStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- NewWorker(memory.NewInMemoryStore(), make(chan audit.Event), nil).Run(ctx)
	}()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWorkerSurvivesStoreErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Action: "a"}
	inbox <- audit.Event{Action: "b"}
	close(inbox)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, NewWorker(&failingStore{}, inbox, logger).Run(context.Background()))
}
