package audit

import (
	"context"
	"time"

	id "campusvote/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// Categories drive retention and routing in downstream consumers.
type EventCategory string

const (
	// CategoryCompliance covers events that change the outcome of an election
	// or an account's existence: ballots, approvals, grievance decisions.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers authentication outcomes and access changes.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine administration.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Vote events never carry the chosen candidate: Subject names the election
// and position (see ElectionSubject), so the audit trail cannot be joined back
// to a ballot.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	Reason    string
	Email     string
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an admin adding a member to a house.
	ActorID string
}

type AuditEvent string

const (
	// Accounts and authentication
	EventUserCreated   AuditEvent = "user_created"
	EventUserUpdated   AuditEvent = "user_updated"
	EventUserDeleted   AuditEvent = "user_deleted"
	EventUserOnboarded AuditEvent = "user_onboarded"
	EventAdminLogin    AuditEvent = "admin_login"
	EventUserLogin     AuditEvent = "user_login"
	EventAuthFailed    AuditEvent = "auth_failed"
	EventTokenRevoked  AuditEvent = "token_revoked"
	EventAuthLockout   AuditEvent = "auth_lockout_triggered"

	// Houses and societies
	EventHouseCreated         AuditEvent = "house_created"
	EventHouseDeleted         AuditEvent = "house_deleted"
	EventHouseMemberAdded     AuditEvent = "house_member_added"
	EventHouseMemberRemoved   AuditEvent = "house_member_removed"
	EventSocietyCreated       AuditEvent = "society_created"
	EventSocietyDeleted       AuditEvent = "society_deleted"
	EventSocietyMemberAdded   AuditEvent = "society_member_added"
	EventSocietyMemberRemoved AuditEvent = "society_member_removed"

	// Elections
	EventElectionCreated     AuditEvent = "election_created"
	EventElectionUpdated     AuditEvent = "election_updated"
	EventElectionDeleted     AuditEvent = "election_deleted"
	EventPositionAdded       AuditEvent = "position_added"
	EventNominationSubmitted AuditEvent = "nomination_submitted"
	EventNominationApproved  AuditEvent = "nomination_approved"
	EventVoteCast            AuditEvent = "vote_cast"
	EventResultsViewed       AuditEvent = "results_viewed"

	// Grievances
	EventGrievanceSubmitted     AuditEvent = "grievance_submitted"
	EventGrievanceStatusChanged AuditEvent = "grievance_status_changed"
	EventGrievanceResolved      AuditEvent = "grievance_resolved"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:            CategoryCompliance,
	EventUserDeleted:            CategoryCompliance,
	EventVoteCast:               CategoryCompliance,
	EventNominationApproved:     CategoryCompliance,
	EventElectionDeleted:        CategoryCompliance,
	EventGrievanceResolved:      CategoryCompliance,
	EventGrievanceStatusChanged: CategoryCompliance,

	EventAdminLogin:           CategorySecurity,
	EventUserLogin:            CategorySecurity,
	EventAuthFailed:           CategorySecurity,
	EventTokenRevoked:         CategorySecurity,
	EventAuthLockout:          CategorySecurity,
	EventHouseMemberAdded:     CategorySecurity,
	EventHouseMemberRemoved:   CategorySecurity,
	EventSocietyMemberAdded:   CategorySecurity,
	EventSocietyMemberRemoved: CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// ElectionSubject is the Subject of election events: the election id, then
// "/" and the position title when the event concerns one position.
func ElectionSubject(electionID, position string) string {
	if position == "" {
		return electionID
	}
	return electionID + "/" + position
}
