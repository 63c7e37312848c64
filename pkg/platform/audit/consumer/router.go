package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"campusvote/internal/platform/kafka/consumer"
	audit "campusvote/pkg/platform/audit"
)

type TopicHandler interface {
	Handle(ctx context.Context, msg *consumer.Message) error
}

// Router fans the audit topic out by event category. Every message goes to
// the materializing handler first; a category handler runs only after that
// succeeded, so a retried message is never half applied.
type Router struct {
	materialize TopicHandler
	byCategory  map[audit.EventCategory]TopicHandler
	logger      *slog.Logger
}

func NewRouter(logger *slog.Logger, materialize TopicHandler) *Router {
	return &Router{
		materialize: materialize,
		byCategory:  make(map[audit.EventCategory]TopicHandler),
		logger:      logger,
	}
}

// Register adds a handler for one category. Later registrations replace
// earlier ones.
func (r *Router) Register(category audit.EventCategory, handler TopicHandler) {
	r.byCategory[category] = handler
}

func (r *Router) Handle(ctx context.Context, msg *consumer.Message) error {
	if err := r.materialize.Handle(ctx, msg); err != nil {
		return err
	}
	var head struct {
		Category audit.EventCategory `json:"category"`
	}
	if err := json.Unmarshal(msg.Value, &head); err != nil || head.Category == "" {
		return nil
	}
	handler, ok := r.byCategory[head.Category]
	if !ok {
		return nil
	}
	if err := handler.Handle(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "category handler failed",
			"category", head.Category,
			"key", string(msg.Key),
			"error", err,
		)
	}
	return nil
}
