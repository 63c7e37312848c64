package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/election/models"
	"campusvote/internal/election/service"
	"campusvote/internal/election/store"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/platform/middleware/admin"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, filter store.Filter) ([]*models.Election, error)
	Get(ctx context.Context, electionID id.ElectionID) (*models.Election, error)
	Create(ctx context.Context, in service.CreateElection) (*models.Election, error)
	Update(ctx context.Context, electionID id.ElectionID, in service.UpdateElection) (*models.Election, error)
	Delete(ctx context.Context, electionID id.ElectionID) error
	AddPosition(ctx context.Context, electionID id.ElectionID, in service.NewPosition) (*models.Election, error)
	Nominate(ctx context.Context, electionID id.ElectionID, positionTitle, manifesto string) (*models.Election, error)
	ApproveNomination(ctx context.Context, electionID id.ElectionID, positionTitle string, candidateID id.UserID) (*models.Election, error)
}

type Handler struct {
	elections Service
	logger    *slog.Logger
}

func New(elections Service, logger *slog.Logger) *Handler {
	return &Handler{elections: elections, logger: logger}
}

// Register mounts election routes. Ownership of an election is checked in
// the service; the role gate here only filters out plain users early.
func (h *Handler) Register(r chi.Router) {
	r.Get("/elections", h.HandleList)
	r.Get("/elections/{id}", h.HandleGet)
	r.Patch("/elections/{id}", h.HandleUpdate)
	r.Delete("/elections/{id}", h.HandleDelete)
	r.Post("/elections/{id}/position", h.HandleAddPosition)
	r.Post("/elections/{id}/nominate", h.HandleNominate)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireRole(h.logger, id.RoleAdmin, id.RoleHouse, id.RoleSociety))
		r.Post("/elections", h.HandleCreate)
		r.Patch("/elections/{id}/approve-nomination", h.HandleApproveNomination)
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	elections, err := h.elections.List(ctx, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list elections", err)
		return
	}
	resp := ElectionListResponse{Results: len(elections), Elections: make([]ElectionResponse, 0, len(elections))}
	for _, e := range elections {
		resp.Elections = append(resp.Elections, toResponse(e))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	var filter store.Filter
	if v := strings.ToLower(q.Get("status")); v != "" {
		filter.Status = models.Status(v)
		if !filter.Status.IsValid() {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid status filter")
		}
	}
	if v := strings.ToLower(q.Get("type")); v != "" {
		filter.Type = models.Type(v)
		if !filter.Type.IsValid() {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid type filter")
		}
	}
	if v := q.Get("house"); v != "" {
		houseID, err := id.ParseHouseID(v)
		if err != nil {
			return filter, err
		}
		filter.HouseID = &houseID
	}
	if v := q.Get("society"); v != "" {
		societyID, err := id.ParseSocietyID(v)
		if err != nil {
			return filter, err
		}
		filter.SocietyID = &societyID
	}
	return filter, nil
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	election, err := h.elections.Get(ctx, electionID)
	if err != nil {
		h.fail(ctx, w, "failed to load election", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(election))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateElectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	election, err := h.elections.Create(ctx, req.toInput())
	if err != nil {
		h.fail(ctx, w, "failed to create election", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(election))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateElectionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	election, err := h.elections.Update(ctx, electionID, req.toInput())
	if err != nil {
		h.fail(ctx, w, "failed to update election", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(election))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.elections.Delete(ctx, electionID); err != nil {
		h.fail(ctx, w, "failed to delete election", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddPosition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[PositionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	election, err := h.elections.AddPosition(ctx, electionID, service.NewPosition{Title: req.Title, Description: req.Description})
	if err != nil {
		h.fail(ctx, w, "failed to add position", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(election))
}

func (h *Handler) HandleNominate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[NominateRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	election, err := h.elections.Nominate(ctx, electionID, req.Position, req.Manifesto)
	if err != nil {
		h.fail(ctx, w, "failed to submit nomination", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(election))
}

func (h *Handler) HandleApproveNomination(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	electionID, err := id.ParseElectionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ApproveNominationRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	election, err := h.elections.ApproveNomination(ctx, electionID, req.Position, req.candidateID)
	if err != nil {
		h.fail(ctx, w, "failed to approve nomination", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(election))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
