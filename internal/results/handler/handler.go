package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/results/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	ComputeResults(ctx context.Context, electionID id.ElectionID, now time.Time) (*service.Results, error)
}

type Handler struct {
	results Service
	logger  *slog.Logger
}

func New(results Service, logger *slog.Logger) *Handler {
	return &Handler{results: results, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/results/{electionId}", h.HandleGetResults)
}

type ElectionSummaryResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type CandidateResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StudentID string `json:"studentId"`
}

type CandidateResultResponse struct {
	Candidate  CandidateResponse `json:"candidate"`
	Votes      int               `json:"votes"`
	Percentage int               `json:"percentage"`
}

type PositionResultResponse struct {
	Candidates []CandidateResultResponse `json:"candidates"`
	TotalVotes int                       `json:"totalVotes"`
}

// ResultsResponse keys positions by title.
type ResultsResponse struct {
	Election ElectionSummaryResponse           `json:"election"`
	Results  map[string]PositionResultResponse `json:"results"`
}

func (h *Handler) HandleGetResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.results.ComputeResults(ctx, electionID, requestcontext.Now(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to compute results", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(res))
}

func toResponse(res *service.Results) ResultsResponse {
	out := ResultsResponse{
		Election: ElectionSummaryResponse{
			ID:     res.Election.ID.String(),
			Title:  res.Election.Title,
			Type:   string(res.Election.Type),
			Status: string(res.Election.Status),
		},
		Results: make(map[string]PositionResultResponse, len(res.Positions)),
	}
	for _, p := range res.Positions {
		pos := PositionResultResponse{
			Candidates: make([]CandidateResultResponse, 0, len(p.Candidates)),
			TotalVotes: p.TotalVotes,
		}
		for _, c := range p.Candidates {
			pos.Candidates = append(pos.Candidates, CandidateResultResponse{
				Candidate: CandidateResponse{
					ID:        c.CandidateID.String(),
					Name:      c.Name,
					StudentID: c.StudentID,
				},
				Votes:      c.Votes,
				Percentage: c.Percentage,
			})
		}
		out.Results[p.Title] = pos
	}
	return out
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
