package models

import (
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under-review"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

func ParseStatus(s string) (Status, error) {
	st := Status(strings.TrimSpace(s))
	switch st {
	case StatusPending, StatusUnderReview, StatusResolved, StatusRejected:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "invalid status value")
}

type Resolution struct {
	Comment    string
	ResolvedBy id.UserID
	ResolvedAt time.Time
}

// Grievance is a complaint raised by a student, optionally about an election.
//
// Invariants:
//   - Title and Description are non-empty
//   - Resolution is set only once the grievance has been resolved
type Grievance struct {
	ID          id.GrievanceID
	Title       string
	Description string
	ElectionID  *id.ElectionID
	Status      Status
	SubmittedBy id.UserID
	AssignedTo  *id.UserID
	Resolution  *Resolution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewGrievance(grievanceID id.GrievanceID, title, description string, electionID *id.ElectionID, submittedBy id.UserID, now time.Time) (*Grievance, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a grievance must have a title")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a grievance must have a description")
	}
	return &Grievance{
		ID:          grievanceID,
		Title:       title,
		Description: description,
		ElectionID:  electionID,
		Status:      StatusPending,
		SubmittedBy: submittedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetStatus moves the grievance to status and records the assignee, which
// may be nil to clear it.
func (g *Grievance) SetStatus(status Status, assignedTo *id.UserID, now time.Time) {
	g.Status = status
	g.AssignedTo = assignedTo
	g.UpdatedAt = now
}

func (g *Grievance) Resolve(comment string, resolvedBy id.UserID, now time.Time) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "resolution comment is required")
	}
	g.Status = StatusResolved
	g.Resolution = &Resolution{Comment: comment, ResolvedBy: resolvedBy, ResolvedAt: now}
	g.UpdatedAt = now
	return nil
}

func (g *Grievance) Clone() *Grievance {
	c := *g
	if g.ElectionID != nil {
		e := *g.ElectionID
		c.ElectionID = &e
	}
	if g.AssignedTo != nil {
		a := *g.AssignedTo
		c.AssignedTo = &a
	}
	if g.Resolution != nil {
		r := *g.Resolution
		c.Resolution = &r
	}
	return &c
}
