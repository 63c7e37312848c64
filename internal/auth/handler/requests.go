package handler

import (
	"strings"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "please provide email and password")
	}
	return nil
}

type OnboardingRequest struct {
	Name      string   `json:"name"`
	StudentID string   `json:"studentId"`
	House     string   `json:"house"`
	Societies []string `json:"societies"`

	houseID    *id.HouseID
	societyIDs []id.SocietyID
}

func (r *OnboardingRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(r.StudentID) == "" {
		return dErrors.New(dErrors.CodeValidation, "student id is required")
	}
	if r.House != "" {
		houseID, err := id.ParseHouseID(strings.TrimSpace(r.House))
		if err != nil {
			return err
		}
		r.houseID = &houseID
	}
	for _, raw := range r.Societies {
		societyID, err := id.ParseSocietyID(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		r.societyIDs = append(r.societyIDs, societyID)
	}
	return nil
}

// webhookEvent is the identity provider's delivery envelope.
type webhookEvent struct {
	Type string      `json:"type"`
	Data webhookUser `json:"data"`
}

type webhookUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (u webhookUser) primaryEmail() string {
	for _, e := range u.EmailAddresses {
		if strings.TrimSpace(e.EmailAddress) != "" {
			return e.EmailAddress
		}
	}
	return ""
}
