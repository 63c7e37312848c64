package admin

import (
	"time"

	audit "campusvote/pkg/platform/audit"
)

// AuditEventResponse is the HTTP view of one audit record.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"userId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Action    string    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	ActorID   string    `json:"actorId,omitempty"`
}

// AuditListResponse wraps the recent events.
type AuditListResponse struct {
	Results int                  `json:"results"`
	Events  []AuditEventResponse `json:"events"`
}

func toAuditResponse(e audit.Event) AuditEventResponse {
	resp := AuditEventResponse{
		ID:        e.ID,
		Category:  string(e.Category),
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		Reason:    e.Reason,
		RequestID: e.RequestID,
		ActorID:   e.ActorID,
	}
	if !e.UserID.IsNil() {
		resp.UserID = e.UserID.String()
	}
	return resp
}
