package domain

import dErrors "campusvote/pkg/domain-errors"

// Role is the caller's authorization role.
// Invariant: the value must be one of the four supported roles.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses
// validation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleHouse   Role = "house"
	RoleSociety Role = "society"
	RoleUser    Role = "user"
)

var validRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleHouse:   true,
	RoleSociety: true,
	RoleUser:    true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

// OneOf reports whether r is any of the given roles.
func (r Role) OneOf(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
