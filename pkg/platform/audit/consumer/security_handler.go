package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"campusvote/internal/platform/kafka/consumer"
	audit "campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/audit/store/postgres"
)

// alerting lists the security actions logged at warn level for on-call.
var alerting = map[string]bool{
	string(audit.EventAuthFailed):  true,
	string(audit.EventAuthLockout): true,
}

// SecurityHandler counts security events by action and surfaces failed
// and locked sign-ins in the service log.
type SecurityHandler struct {
	events *prometheus.CounterVec
	logger *slog.Logger
}

func NewSecurityHandler(reg prometheus.Registerer, logger *slog.Logger) (*SecurityHandler, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusvote_audit_security_events_total",
		Help: "Security audit events consumed from the audit topic",
	}, []string{"action"})
	if err := reg.Register(events); err != nil {
		return nil, err
	}
	return &SecurityHandler{events: events, logger: logger}, nil
}

func (h *SecurityHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var payload postgres.Payload
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return err
	}
	h.events.WithLabelValues(payload.Action).Inc()
	if alerting[payload.Action] {
		h.logger.WarnContext(ctx, "security audit event",
			"action", payload.Action,
			"email", payload.Email,
			"reason", payload.Reason,
			"request_id", payload.RequestID,
			"at", payload.Timestamp,
		)
	}
	return nil
}
