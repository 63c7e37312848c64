package models

import (
	"regexp"
	"slices"
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

// DefaultColor is used when a house is created without one.
const DefaultColor = "#000000"

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// House groups students for house-level elections.
//
// Invariants:
//   - Name is non-empty
//   - Color is a #rrggbb hex value
//   - every secretary is also a member
type House struct {
	ID          id.HouseID
	Name        string
	Description string
	Color       string
	Logo        string
	Members     []id.UserID
	Secretaries []id.UserID
	Active      bool
	CreatedBy   id.UserID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewHouse(houseID id.HouseID, name, description, color, logo string, createdBy id.UserID, now time.Time) (*House, error) {
	h := &House{
		ID:          houseID,
		Description: strings.TrimSpace(description),
		Logo:        strings.TrimSpace(logo),
		Active:      true,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Rename(name); err != nil {
		return nil, err
	}
	if color == "" {
		color = DefaultColor
	}
	if err := h.Recolor(color); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *House) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "house name is required")
	}
	h.Name = name
	return nil
}

func (h *House) Recolor(color string) error {
	if !colorPattern.MatchString(color) {
		return dErrors.New(dErrors.CodeInvariantViolation, "color must be a hex value like #1a2b3c")
	}
	h.Color = color
	return nil
}

func (h *House) HasMember(userID id.UserID) bool {
	return slices.Contains(h.Members, userID)
}

// AddMember reports whether userID was newly added.
func (h *House) AddMember(userID id.UserID) bool {
	if h.HasMember(userID) {
		return false
	}
	h.Members = append(h.Members, userID)
	return true
}

// RemoveMember drops userID from members and secretaries.
func (h *House) RemoveMember(userID id.UserID) bool {
	if !h.HasMember(userID) {
		return false
	}
	h.Members = slices.DeleteFunc(h.Members, func(m id.UserID) bool { return m == userID })
	h.Secretaries = slices.DeleteFunc(h.Secretaries, func(m id.UserID) bool { return m == userID })
	return true
}

// SetSecretaries replaces the secretary list. Every secretary must be a member.
func (h *House) SetSecretaries(secretaries []id.UserID) error {
	for _, s := range secretaries {
		if !h.HasMember(s) {
			return dErrors.New(dErrors.CodeInvariantViolation, "secretaries must be members of the house")
		}
	}
	h.Secretaries = slices.Clone(secretaries)
	return nil
}

func (h *House) Clone() *House {
	c := *h
	c.Members = slices.Clone(h.Members)
	c.Secretaries = slices.Clone(h.Secretaries)
	return &c
}
