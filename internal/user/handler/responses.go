package handler

import (
	"time"

	"campusvote/internal/user/models"
)

// UserResponse never carries the password hash or the external identity id.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	StudentID string    `json:"studentId,omitempty"`
	Role      string    `json:"role"`
	House     *string   `json:"house"`
	Societies []string  `json:"societies"`
	Active    bool      `json:"active"`
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserListResponse struct {
	Results int            `json:"results"`
	Users   []UserResponse `json:"users"`
}

func ToResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		StudentID: u.StudentID,
		Role:      string(u.Role),
		Societies: make([]string, 0, len(u.SocietyIDs)),
		Active:    u.Active,
		Onboarded: u.Onboarded,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.HouseID != nil {
		house := u.HouseID.String()
		resp.House = &house
	}
	for _, s := range u.SocietyIDs {
		resp.Societies = append(resp.Societies, s.String())
	}
	return resp
}

func toListResponse(users []*models.User) UserListResponse {
	out := UserListResponse{Results: len(users), Users: make([]UserResponse, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, ToResponse(u))
	}
	return out
}
