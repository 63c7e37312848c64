package handler

import (
	"time"

	"campusvote/internal/election/models"
)

type CandidateResponse struct {
	User        string     `json:"user"`
	Approved    bool       `json:"approved"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	Manifesto   string     `json:"manifesto,omitempty"`
	NominatedAt time.Time  `json:"nominatedAt"`
}

type PositionResponse struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Candidates  []CandidateResponse `json:"candidates"`
}

type ElectionResponse struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Type              string             `json:"type"`
	Status            string             `json:"status"`
	House             string             `json:"house,omitempty"`
	Society           string             `json:"society,omitempty"`
	Positions         []PositionResponse `json:"positions"`
	NominationStart   time.Time          `json:"nominationStart"`
	NominationEnd     time.Time          `json:"nominationEnd"`
	VotingStart       time.Time          `json:"votingStart"`
	VotingEnd         time.Time          `json:"votingEnd"`
	ResultsReleasedAt *time.Time         `json:"resultsReleasedAt,omitempty"`
	CreatedBy         string             `json:"createdBy"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

type ElectionListResponse struct {
	Results   int                `json:"results"`
	Elections []ElectionResponse `json:"elections"`
}

func toResponse(e *models.Election) ElectionResponse {
	resp := ElectionResponse{
		ID:                e.ID.String(),
		Title:             e.Title,
		Description:       e.Description,
		Type:              string(e.Type),
		Status:            string(e.Status),
		Positions:         make([]PositionResponse, 0, len(e.Positions)),
		NominationStart:   e.NominationStart,
		NominationEnd:     e.NominationEnd,
		VotingStart:       e.VotingStart,
		VotingEnd:         e.VotingEnd,
		ResultsReleasedAt: e.ResultsReleasedAt,
		CreatedBy:         e.CreatedBy.String(),
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
	if e.HouseID != nil {
		resp.House = e.HouseID.String()
	}
	if e.SocietyID != nil {
		resp.Society = e.SocietyID.String()
	}
	for _, p := range e.Positions {
		pos := PositionResponse{Title: p.Title, Description: p.Description, Candidates: make([]CandidateResponse, 0, len(p.Candidates))}
		for _, c := range p.Candidates {
			cand := CandidateResponse{
				User:        c.UserID.String(),
				Approved:    c.Approved,
				ApprovedAt:  c.ApprovedAt,
				Manifesto:   c.Manifesto,
				NominatedAt: c.NominatedAt,
			}
			if c.ApprovedBy != nil {
				cand.ApprovedBy = c.ApprovedBy.String()
			}
			pos.Candidates = append(pos.Candidates, cand)
		}
		resp.Positions = append(resp.Positions, pos)
	}
	return resp
}
