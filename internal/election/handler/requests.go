package handler

import (
	"strings"
	"time"

	"campusvote/internal/election/models"
	"campusvote/internal/election/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
)

type PositionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r *PositionRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "position title is required")
	}
	return nil
}

type CreateElectionRequest struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Type            string            `json:"type"`
	House           string            `json:"house"`
	Society         string            `json:"society"`
	Positions       []PositionRequest `json:"positions"`
	NominationStart time.Time         `json:"nominationStart"`
	NominationEnd   time.Time         `json:"nominationEnd"`
	VotingStart     time.Time         `json:"votingStart"`
	VotingEnd       time.Time         `json:"votingEnd"`

	houseID   *id.HouseID
	societyID *id.SocietyID
}

func (r *CreateElectionRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "election title is required")
	}
	if !models.Type(r.Type).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "type must be one of university, house or society")
	}
	if h := strings.TrimSpace(r.House); h != "" {
		houseID, err := id.ParseHouseID(h)
		if err != nil {
			return err
		}
		r.houseID = &houseID
	}
	if s := strings.TrimSpace(r.Society); s != "" {
		societyID, err := id.ParseSocietyID(s)
		if err != nil {
			return err
		}
		r.societyID = &societyID
	}
	for i := range r.Positions {
		if err := r.Positions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateElectionRequest) toInput() service.CreateElection {
	in := service.CreateElection{
		Title:       r.Title,
		Description: r.Description,
		Type:        models.Type(r.Type),
		HouseID:     r.houseID,
		SocietyID:   r.societyID,
		Schedule: models.Schedule{
			NominationStart: r.NominationStart,
			NominationEnd:   r.NominationEnd,
			VotingStart:     r.VotingStart,
			VotingEnd:       r.VotingEnd,
		},
	}
	for _, p := range r.Positions {
		in.Positions = append(in.Positions, service.NewPosition{Title: p.Title, Description: p.Description})
	}
	return in
}

type UpdateElectionRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Status          *string    `json:"status"`
	NominationStart *time.Time `json:"nominationStart"`
	NominationEnd   *time.Time `json:"nominationEnd"`
	VotingStart     *time.Time `json:"votingStart"`
	VotingEnd       *time.Time `json:"votingEnd"`
}

func (r *UpdateElectionRequest) Validate() error {
	if r.Status != nil && !models.Status(strings.ToLower(*r.Status)).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid election status")
	}
	return nil
}

func (r *UpdateElectionRequest) toInput() service.UpdateElection {
	in := service.UpdateElection{
		Title:           r.Title,
		Description:     r.Description,
		NominationStart: r.NominationStart,
		NominationEnd:   r.NominationEnd,
		VotingStart:     r.VotingStart,
		VotingEnd:       r.VotingEnd,
	}
	if r.Status != nil {
		status := models.Status(strings.ToLower(*r.Status))
		in.Status = &status
	}
	return in
}

type NominateRequest struct {
	Position  string `json:"position"`
	Manifesto string `json:"manifesto"`
}

func (r *NominateRequest) Validate() error {
	r.Position = strings.TrimSpace(r.Position)
	if r.Position == "" {
		return dErrors.New(dErrors.CodeValidation, "position is required")
	}
	return nil
}

type ApproveNominationRequest struct {
	Position    string `json:"position"`
	CandidateID string `json:"candidateId"`

	candidateID id.UserID
}

func (r *ApproveNominationRequest) Validate() error {
	r.Position = strings.TrimSpace(r.Position)
	if r.Position == "" {
		return dErrors.New(dErrors.CodeValidation, "position is required")
	}
	candidateID, err := id.ParseUserID(strings.TrimSpace(r.CandidateID))
	if err != nil {
		return err
	}
	r.candidateID = candidateID
	return nil
}
