package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"campusvote/internal/platform/kafka/consumer"
	audit "campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/audit/store/postgres"
)

// EventStore materializes consumed events for querying.
type EventStore interface {
	AppendWithID(ctx context.Context, eventID uuid.UUID, event audit.Event) error
}

// EventsHandler writes audit events from Kafka into the queryable store.
type EventsHandler struct {
	store  EventStore
	logger *slog.Logger
}

func NewEventsHandler(store EventStore, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{store: store, logger: logger}
}

// Handle decodes one outbox payload. Malformed messages are logged and
// skipped; store failures are returned so the consumer retries them.
func (h *EventsHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	eventID, err := uuid.Parse(string(msg.Key))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to parse audit event ID",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	var payload postgres.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		h.logger.WarnContext(ctx, "failed to unmarshal audit payload",
			"event_id", eventID,
			"error", err,
		)
		return nil
	}

	event := payload.Event()
	event.ID = eventID.String()
	return h.store.AppendWithID(ctx, eventID, event)
}
