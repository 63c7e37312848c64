// Package domain holds identifier and role primitives shared across modules.
//
// Typed IDs prevent passing an ElectionID where a UserID is expected. Construct
// them from external input with the Parse functions, which reject empty,
// malformed and nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "campusvote/pkg/domain-errors"
)

type (
	UserID      uuid.UUID
	HouseID     uuid.UUID
	SocietyID   uuid.UUID
	ElectionID  uuid.UUID
	VoteID      uuid.UUID
	GrievanceID uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseHouseID(s string) (HouseID, error) {
	u, err := parseUUID(s, "house id")
	return HouseID(u), err
}

func ParseSocietyID(s string) (SocietyID, error) {
	u, err := parseUUID(s, "society id")
	return SocietyID(u), err
}

func ParseElectionID(s string) (ElectionID, error) {
	u, err := parseUUID(s, "election id")
	return ElectionID(u), err
}

func ParseVoteID(s string) (VoteID, error) {
	u, err := parseUUID(s, "vote id")
	return VoteID(u), err
}

func ParseGrievanceID(s string) (GrievanceID, error) {
	u, err := parseUUID(s, "grievance id")
	return GrievanceID(u), err
}

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id HouseID) String() string     { return uuid.UUID(id).String() }
func (id SocietyID) String() string   { return uuid.UUID(id).String() }
func (id ElectionID) String() string  { return uuid.UUID(id).String() }
func (id VoteID) String() string      { return uuid.UUID(id).String() }
func (id GrievanceID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id HouseID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id SocietyID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ElectionID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id VoteID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id GrievanceID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs render as plain UUID strings in JSON bodies and
// as map keys.
func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id HouseID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id SocietyID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id ElectionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id VoteID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id GrievanceID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *HouseID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SocietyID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ElectionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VoteID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *GrievanceID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
