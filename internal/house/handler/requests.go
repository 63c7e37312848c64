package handler

import (
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	pstrings "campusvote/pkg/platform/strings"
)

type CreateHouseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Logo        string `json:"logo"`
}

func (r *CreateHouseRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "house name is required")
	}
	return nil
}

type UpdateHouseRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Color       *string  `json:"color"`
	Logo        *string  `json:"logo"`
	Active      *bool    `json:"active"`
	Secretaries []string `json:"secretaries"`

	secretaries []id.UserID
}

func (r *UpdateHouseRequest) Validate() error {
	if r.Secretaries == nil {
		return nil
	}
	ids, err := parseUserIDs(r.Secretaries)
	if err != nil {
		return err
	}
	r.secretaries = ids
	return nil
}

type AddMembersRequest struct {
	UserIDs []string `json:"userIds"`

	userIDs []id.UserID
}

func (r *AddMembersRequest) Validate() error {
	if len(r.UserIDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "userIds must contain at least one user")
	}
	ids, err := parseUserIDs(r.UserIDs)
	if err != nil {
		return err
	}
	r.userIDs = ids
	return nil
}

func parseUserIDs(raw []string) ([]id.UserID, error) {
	raw = pstrings.DedupeAndTrim(raw)
	out := make([]id.UserID, 0, len(raw))
	for _, s := range raw {
		userID, err := id.ParseUserID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, userID)
	}
	return out, nil
}
