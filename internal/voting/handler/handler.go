package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/voting/models"
	"campusvote/internal/voting/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	CastVote(ctx context.Context, electionID id.ElectionID, positionTitle string, candidateID, voterID id.UserID, clientFingerprint string) (*models.Vote, error)
	ListMyVotes(ctx context.Context, voterID id.UserID) ([]service.MyVote, error)
}

type Handler struct {
	votes  Service
	logger *slog.Logger
}

func New(votes Service, logger *slog.Logger) *Handler {
	return &Handler{votes: votes, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/votes/my", h.HandleMyVotes)
	r.Post("/votes/{electionId}", h.HandleCastVote)
}

type CastVoteRequest struct {
	Position  models.PositionRef `json:"position"`
	Candidate string             `json:"candidate"`

	candidateID id.UserID
}

func (r *CastVoteRequest) Validate() error {
	if r.Position.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "position is required")
	}
	candidateID, err := id.ParseUserID(strings.TrimSpace(r.Candidate))
	if err != nil {
		return err
	}
	r.candidateID = candidateID
	return nil
}

// VoteResponse deliberately has no voter, candidate or client hash.
type VoteResponse struct {
	ID        string    `json:"id"`
	Election  string    `json:"election"`
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

type ElectionSummaryResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

type CandidateSummaryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type MyVoteResponse struct {
	ID        string                   `json:"id"`
	Election  *ElectionSummaryResponse `json:"election"`
	Position  string                   `json:"position"`
	Candidate CandidateSummaryResponse `json:"candidate"`
	CreatedAt time.Time                `json:"createdAt"`
}

type MyVotesResponse struct {
	Results int              `json:"results"`
	Votes   []MyVoteResponse `json:"votes"`
}

func (h *Handler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "electionId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CastVoteRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	fingerprint := models.Fingerprint(requestcontext.ClientIP(ctx), requestcontext.UserAgent(ctx))
	vote, err := h.votes.CastVote(ctx, electionID, req.Position.Title(), req.candidateID, requestcontext.UserID(ctx), fingerprint)
	if err != nil {
		h.fail(ctx, w, "failed to cast vote", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, VoteResponse{
		ID:        vote.ID.String(),
		Election:  vote.ElectionID.String(),
		Position:  vote.Position.Title(),
		CreatedAt: vote.CreatedAt,
	})
}

func (h *Handler) HandleMyVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	votes, err := h.votes.ListMyVotes(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, "failed to list votes", err)
		return
	}
	resp := MyVotesResponse{Results: len(votes), Votes: make([]MyVoteResponse, 0, len(votes))}
	for _, v := range votes {
		item := MyVoteResponse{
			ID:        v.ID.String(),
			Position:  v.Position,
			Candidate: CandidateSummaryResponse{ID: v.CandidateID.String(), Name: v.CandidateName},
			CreatedAt: v.CreatedAt,
		}
		if v.Election != nil {
			item.Election = &ElectionSummaryResponse{
				ID:     v.Election.ID.String(),
				Title:  v.Election.Title,
				Type:   string(v.Election.Type),
				Status: string(v.Election.Status),
			}
		}
		resp.Votes = append(resp.Votes, item)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
