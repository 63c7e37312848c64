package handler

import (
	"strings"

	"campusvote/internal/grievance/models"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type SubmitGrievanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Election    string `json:"election"`

	electionID *id.ElectionID
}

func (r *SubmitGrievanceRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "a grievance must have a title")
	}
	if strings.TrimSpace(r.Description) == "" {
		return dErrors.New(dErrors.CodeValidation, "a grievance must have a description")
	}
	if r.Election != "" {
		electionID, err := id.ParseElectionID(strings.TrimSpace(r.Election))
		if err != nil {
			return err
		}
		r.electionID = &electionID
	}
	return nil
}

type UpdateStatusRequest struct {
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo"`

	status     models.Status
	assignedTo *id.UserID
}

func (r *UpdateStatusRequest) Validate() error {
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.status = status
	if r.AssignedTo != "" {
		userID, err := id.ParseUserID(strings.TrimSpace(r.AssignedTo))
		if err != nil {
			return err
		}
		r.assignedTo = &userID
	}
	return nil
}

type ResolveRequest struct {
	Comment string `json:"comment"`
}

func (r *ResolveRequest) Validate() error {
	if strings.TrimSpace(r.Comment) == "" {
		return dErrors.New(dErrors.CodeValidation, "resolution comment is required")
	}
	return nil
}
