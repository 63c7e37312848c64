package models

import (
	"slices"
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type Type string

const (
	TypeUniversity Type = "university"
	TypeHouse      Type = "house"
	TypeSociety    Type = "society"
)

func (t Type) IsValid() bool {
	return t == TypeUniversity || t == TypeHouse || t == TypeSociety
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusUpcoming, StatusActive, StatusCancelled},
	StatusUpcoming: {StatusActive, StatusCancelled},
	StatusActive:   {StatusCompleted, StatusCancelled},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusUpcoming, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
// Completed and cancelled are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// Schedule holds the nomination and voting windows. Bounds are inclusive.
type Schedule struct {
	NominationStart time.Time
	NominationEnd   time.Time
	VotingStart     time.Time
	VotingEnd       time.Time
}

// Validate enforces NominationStart < NominationEnd <= VotingStart < VotingEnd.
func (s Schedule) Validate() error {
	if s.NominationStart.IsZero() || s.NominationEnd.IsZero() || s.VotingStart.IsZero() || s.VotingEnd.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "nomination and voting dates are required")
	}
	if !s.NominationStart.Before(s.NominationEnd) {
		return dErrors.New(dErrors.CodeInvariantViolation, "nomination end date must be after start date")
	}
	if s.VotingStart.Before(s.NominationEnd) {
		return dErrors.New(dErrors.CodeInvariantViolation, "voting cannot start before nominations close")
	}
	if !s.VotingStart.Before(s.VotingEnd) {
		return dErrors.New(dErrors.CodeInvariantViolation, "voting end date must be after start date")
	}
	return nil
}

type Candidate struct {
	UserID      id.UserID
	Approved    bool
	ApprovedBy  *id.UserID
	ApprovedAt  *time.Time
	Manifesto   string
	NominatedAt time.Time
}

type Position struct {
	Title       string
	Description string
	Candidates  []Candidate
}

// Candidate returns the candidate entry for userID.
func (p *Position) Candidate(userID id.UserID) (*Candidate, bool) {
	for i := range p.Candidates {
		if p.Candidates[i].UserID == userID {
			return &p.Candidates[i], true
		}
	}
	return nil, false
}

// ApprovedCandidates keeps nomination order.
func (p *Position) ApprovedCandidates() []Candidate {
	var out []Candidate
	for _, c := range p.Candidates {
		if c.Approved {
			out = append(out, c)
		}
	}
	return out
}

// Election is a contest for one or more positions.
//
// Invariants:
//   - Title is non-empty and Type is valid
//   - HouseID is set exactly when Type is house, SocietyID exactly when Type is society
//   - the schedule windows are ordered
//   - position titles are unique
type Election struct {
	ID          id.ElectionID
	Title       string
	Description string
	Type        Type
	Status      Status
	HouseID     *id.HouseID
	SocietyID   *id.SocietyID
	Positions   []Position
	Schedule
	ResultsReleasedAt *time.Time
	CreatedBy         id.UserID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewElectionParams gathers constructor input.
type NewElectionParams struct {
	ID          id.ElectionID
	Title       string
	Description string
	Type        Type
	HouseID     *id.HouseID
	SocietyID   *id.SocietyID
	Positions   []Position
	Schedule    Schedule
	CreatedBy   id.UserID
	Now         time.Time
}

// NewElection validates p and returns a draft election.
func NewElection(p NewElectionParams) (*Election, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "election title is required")
	}
	if !p.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid election type")
	}
	if (p.Type == TypeHouse) != (p.HouseID != nil) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "house is required for house elections and only for them")
	}
	if (p.Type == TypeSociety) != (p.SocietyID != nil) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "society is required for society elections and only for them")
	}
	if err := p.Schedule.Validate(); err != nil {
		return nil, err
	}

	e := &Election{
		ID:          p.ID,
		Title:       title,
		Description: strings.TrimSpace(p.Description),
		Type:        p.Type,
		Status:      StatusDraft,
		HouseID:     p.HouseID,
		SocietyID:   p.SocietyID,
		Schedule:    p.Schedule,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.Now,
		UpdatedAt:   p.Now,
	}
	for _, pos := range p.Positions {
		if err := e.AddPosition(pos.Title, pos.Description); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Position looks up a position by title.
func (e *Election) Position(title string) (*Position, bool) {
	title = strings.TrimSpace(title)
	for i := range e.Positions {
		if e.Positions[i].Title == title {
			return &e.Positions[i], true
		}
	}
	return nil, false
}

// AddPosition appends an empty position. Titles must be unique.
func (e *Election) AddPosition(title, description string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "position title is required")
	}
	if _, exists := e.Position(title); exists {
		return dErrors.New(dErrors.CodeConflict, "position already exists")
	}
	e.Positions = append(e.Positions, Position{Title: title, Description: strings.TrimSpace(description)})
	return nil
}

func (e *Election) InNominationWindow(now time.Time) bool {
	return !now.Before(e.NominationStart) && !now.After(e.NominationEnd)
}

func (e *Election) InVotingWindow(now time.Time) bool {
	return !now.Before(e.VotingStart) && !now.After(e.VotingEnd)
}

// Reschedule replaces the windows after validating them.
func (e *Election) Reschedule(s Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.Schedule = s
	return nil
}

// TransitionTo moves the election along its lifecycle. Completing an
// election stamps ResultsReleasedAt.
func (e *Election) TransitionTo(next Status, now time.Time) error {
	if e.Status == StatusCompleted {
		return dErrors.New(dErrors.CodeInvalidState, "cannot update a completed election")
	}
	if !e.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState, "cannot change status from "+string(e.Status)+" to "+string(next))
	}
	e.Status = next
	if next == StatusCompleted {
		released := now
		e.ResultsReleasedAt = &released
	}
	return nil
}

// Deletable reports whether the election may be removed.
func (e *Election) Deletable() bool {
	return e.Status != StatusActive && e.Status != StatusCompleted
}

func (e *Election) Clone() *Election {
	c := *e
	if e.HouseID != nil {
		h := *e.HouseID
		c.HouseID = &h
	}
	if e.SocietyID != nil {
		s := *e.SocietyID
		c.SocietyID = &s
	}
	if e.ResultsReleasedAt != nil {
		t := *e.ResultsReleasedAt
		c.ResultsReleasedAt = &t
	}
	c.Positions = make([]Position, len(e.Positions))
	for i, p := range e.Positions {
		p.Candidates = slices.Clone(p.Candidates)
		c.Positions[i] = p
	}
	return &c
}
