package handler

import (
	"strings"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/email"
)

// UpdateMeRequest is the self-service profile update. Password fields are
// decoded only so they can be rejected.
type UpdateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (r *UpdateMeRequest) Validate() error {
	if r.Password != nil || r.PasswordConfirm != nil {
		return dErrors.New(dErrors.CodeValidation, "this route is not for password updates")
	}
	trimPtr(r.Name)
	if r.Email != nil {
		*r.Email = email.Normalize(*r.Email)
	}
	return nil
}

type CreateUserRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	StudentID string  `json:"studentId"`
	Role      string  `json:"role"`
	House     *string `json:"house"`

	role    id.Role
	houseID *id.HouseID
}

func (r *CreateUserRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = email.Normalize(r.Email)
	r.StudentID = strings.TrimSpace(r.StudentID)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Role == "" {
		r.Role = string(id.RoleUser)
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.role = role
	if r.House != nil && *r.House != "" {
		houseID, err := id.ParseHouseID(*r.House)
		if err != nil {
			return err
		}
		r.houseID = &houseID
	}
	return nil
}

type UpdateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	StudentID *string `json:"studentId"`
	Role      *string `json:"role"`
	Active    *bool   `json:"active"`

	role *id.Role
}

func (r *UpdateUserRequest) Validate() error {
	trimPtr(r.Name)
	trimPtr(r.StudentID)
	if r.Role != nil {
		role, err := id.ParseRole(*r.Role)
		if err != nil {
			return err
		}
		r.role = &role
	}
	return nil
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
