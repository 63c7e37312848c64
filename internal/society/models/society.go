package models

import (
	"slices"
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type Category string

const (
	CategoryCultural  Category = "cultural"
	CategoryTechnical Category = "technical"
	CategorySports    Category = "sports"
	CategoryAcademic  Category = "academic"
	CategorySocial    Category = "social"
	CategoryOther     Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryCultural, CategoryTechnical, CategorySports, CategoryAcademic, CategorySocial, CategoryOther:
		return true
	}
	return false
}

type MemberRole string

const (
	MemberRoleMember      MemberRole = "member"
	MemberRoleLead        MemberRole = "lead"
	MemberRoleCoordinator MemberRole = "coordinator"
)

func (r MemberRole) IsValid() bool {
	return r == MemberRoleMember || r == MemberRoleLead || r == MemberRoleCoordinator
}

type Member struct {
	UserID   id.UserID
	Role     MemberRole
	JoinedAt time.Time
}

// Society is a student club. Leads are the members holding the lead role.
//
// Invariants:
//   - Name is non-empty
//   - Category is one of the known categories
//   - a user appears at most once in Members
type Society struct {
	ID          id.SocietyID
	Name        string
	Description string
	Category    Category
	Logo        string
	Members     []Member
	Active      bool
	CreatedBy   id.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewSociety creates an active society with its creator as the first lead.
func NewSociety(societyID id.SocietyID, name, description string, category Category, logo string, createdBy id.UserID, now time.Time) (*Society, error) {
	s := &Society{
		ID:          societyID,
		Description: strings.TrimSpace(description),
		Logo:        strings.TrimSpace(logo),
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Rename(name); err != nil {
		return nil, err
	}
	if category == "" {
		category = CategoryOther
	}
	if err := s.Recategorize(category); err != nil {
		return nil, err
	}
	s.UpsertMember(createdBy, MemberRoleLead, now)
	return s, nil
}

func (s *Society) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "society name is required")
	}
	s.Name = name
	return nil
}

func (s *Society) Recategorize(category Category) error {
	if !category.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid society category")
	}
	s.Category = category
	return nil
}

// UpsertMember adds userID or changes their role. It reports whether the
// user is new to the society.
func (s *Society) UpsertMember(userID id.UserID, role MemberRole, now time.Time) bool {
	for i := range s.Members {
		if s.Members[i].UserID == userID {
			s.Members[i].Role = role
			return false
		}
	}
	s.Members = append(s.Members, Member{UserID: userID, Role: role, JoinedAt: now})
	return true
}

func (s *Society) RemoveMember(userID id.UserID) bool {
	before := len(s.Members)
	s.Members = slices.DeleteFunc(s.Members, func(m Member) bool { return m.UserID == userID })
	return len(s.Members) != before
}

func (s *Society) HasMember(userID id.UserID) bool {
	return slices.ContainsFunc(s.Members, func(m Member) bool { return m.UserID == userID })
}

func (s *Society) IsLead(userID id.UserID) bool {
	return slices.ContainsFunc(s.Members, func(m Member) bool {
		return m.UserID == userID && m.Role == MemberRoleLead
	})
}

// Leads lists members with the lead role in join order.
func (s *Society) Leads() []id.UserID {
	var leads []id.UserID
	for _, m := range s.Members {
		if m.Role == MemberRoleLead {
			leads = append(leads, m.UserID)
		}
	}
	return leads
}

func (s *Society) Clone() *Society {
	c := *s
	c.Members = slices.Clone(s.Members)
	return &c
}
