package models

import (
	"slices"
	"strings"
	"time"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/email"
	"campusvote/pkg/requestcontext"
)

const maxNameLength = 128

// User is a member of the university.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - Email is a valid, lower-cased address
//   - Role is one of the supported roles
//   - SocietyIDs holds no duplicates
type User struct {
	ID                id.UserID
	Name              string
	Email             string
	PasswordHash      string
	StudentID         string
	Role              id.Role
	HouseID           *id.HouseID
	SocietyIDs        []id.SocietyID
	ExternalID        string
	Active            bool
	Onboarded         bool
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func NewUser(userID id.UserID, name, address string, role id.Role, now time.Time) (*User, error) {
	u := &User{
		ID:        userID,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Rename(name); err != nil {
		return nil, err
	}
	if err := u.ChangeEmail(address); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	return u, nil
}

func (u *User) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "name is required")
	}
	if len(name) > maxNameLength {
		return dErrors.New(dErrors.CodeInvariantViolation, "name must be 128 characters or less")
	}
	u.Name = name
	return nil
}

func (u *User) ChangeEmail(address string) error {
	address = email.Normalize(address)
	if !email.IsValid(address) {
		return dErrors.New(dErrors.CodeInvariantViolation, "please provide a valid email")
	}
	u.Email = address
	return nil
}

// SetPasswordHash stores a new hash and records when it changed so tokens
// issued earlier stop working.
func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	changed := now
	u.PasswordChangedAt = &changed
	u.UpdatedAt = now
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// PasswordChangedAfter reports whether the password changed after the token
// was issued. Token times have second precision.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Before(u.PasswordChangedAt.Truncate(time.Second))
}

func (u *User) InSociety(societyID id.SocietyID) bool {
	return slices.Contains(u.SocietyIDs, societyID)
}

func (u *User) JoinSociety(societyID id.SocietyID) {
	if !u.InSociety(societyID) {
		u.SocietyIDs = append(u.SocietyIDs, societyID)
	}
}

func (u *User) LeaveSociety(societyID id.SocietyID) {
	u.SocietyIDs = slices.DeleteFunc(u.SocietyIDs, func(s id.SocietyID) bool { return s == societyID })
}

// Principal is the authorization view of the user.
func (u *User) Principal() requestcontext.Principal {
	p := requestcontext.Principal{
		UserID:     u.ID,
		Role:       u.Role,
		SocietyIDs: slices.Clone(u.SocietyIDs),
	}
	if u.HouseID != nil {
		h := *u.HouseID
		p.HouseID = &h
	}
	return p
}

// Clone returns a deep copy so stores never share slices with callers.
func (u *User) Clone() *User {
	c := *u
	c.SocietyIDs = slices.Clone(u.SocietyIDs)
	if u.HouseID != nil {
		h := *u.HouseID
		c.HouseID = &h
	}
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	return &c
}
