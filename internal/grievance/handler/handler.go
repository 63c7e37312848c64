package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/grievance/models"
	"campusvote/internal/grievance/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/platform/middleware/admin"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	ListMine(ctx context.Context) ([]*models.Grievance, error)
	Submit(ctx context.Context, in service.SubmitGrievance) (*models.Grievance, error)
	Get(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error)
	List(ctx context.Context, status *models.Status) ([]*models.Grievance, error)
	UpdateStatus(ctx context.Context, grievanceID id.GrievanceID, status models.Status, assignedTo *id.UserID) (*models.Grievance, error)
	Resolve(ctx context.Context, grievanceID id.GrievanceID, comment string) (*models.Grievance, error)
}

type Handler struct {
	grievances Service
	logger     *slog.Logger
}

func New(grievances Service, logger *slog.Logger) *Handler {
	return &Handler{grievances: grievances, logger: logger}
}

// Register mounts the grievance routes. The router must already require
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/grievances/my", h.HandleListMine)
	r.Post("/grievances", h.HandleSubmit)
	r.Get("/grievances/{id}", h.HandleGet)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(h.logger))
		r.Get("/grievances", h.HandleList)
		r.Patch("/grievances/{id}", h.HandleUpdateStatus)
		r.Post("/grievances/{id}/resolve", h.HandleResolve)
	})
}

type ResolutionResponse struct {
	Comment    string    `json:"comment"`
	ResolvedBy string    `json:"resolvedBy"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

type GrievanceResponse struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Election    string              `json:"election,omitempty"`
	Status      string              `json:"status"`
	SubmittedBy string              `json:"submittedBy"`
	AssignedTo  string              `json:"assignedTo,omitempty"`
	Resolution  *ResolutionResponse `json:"resolution,omitempty"`
	CreatedAt   time.Time           `json:"submittedAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type GrievanceListResponse struct {
	Results    int                 `json:"results"`
	Grievances []GrievanceResponse `json:"grievances"`
}

func toResponse(g *models.Grievance) GrievanceResponse {
	resp := GrievanceResponse{
		ID:          g.ID.String(),
		Title:       g.Title,
		Description: g.Description,
		Status:      string(g.Status),
		SubmittedBy: g.SubmittedBy.String(),
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
	if g.ElectionID != nil {
		resp.Election = g.ElectionID.String()
	}
	if g.AssignedTo != nil {
		resp.AssignedTo = g.AssignedTo.String()
	}
	if g.Resolution != nil {
		resp.Resolution = &ResolutionResponse{
			Comment:    g.Resolution.Comment,
			ResolvedBy: g.Resolution.ResolvedBy.String(),
			ResolvedAt: g.Resolution.ResolvedAt,
		}
	}
	return resp
}

func toListResponse(grievances []*models.Grievance) GrievanceListResponse {
	resp := GrievanceListResponse{Results: len(grievances), Grievances: make([]GrievanceResponse, 0, len(grievances))}
	for _, g := range grievances {
		resp.Grievances = append(resp.Grievances, toResponse(g))
	}
	return resp
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grievances, err := h.grievances.ListMine(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list grievances", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(grievances))
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[SubmitGrievanceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	g, err := h.grievances.Submit(ctx, service.SubmitGrievance{
		Title:       req.Title,
		Description: req.Description,
		ElectionID:  req.electionID,
	})
	if err != nil {
		h.fail(ctx, w, "failed to submit grievance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(g))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grievanceID, err := id.ParseGrievanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	g, err := h.grievances.Get(ctx, grievanceID)
	if err != nil {
		h.fail(ctx, w, "failed to get grievance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(g))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var status *models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		status = &st
	}
	grievances, err := h.grievances.List(ctx, status)
	if err != nil {
		h.fail(ctx, w, "failed to list grievances", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(grievances))
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grievanceID, err := id.ParseGrievanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	g, err := h.grievances.UpdateStatus(ctx, grievanceID, req.status, req.assignedTo)
	if err != nil {
		h.fail(ctx, w, "failed to update grievance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(g))
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	grievanceID, err := id.ParseGrievanceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	g, err := h.grievances.Resolve(ctx, grievanceID, req.Comment)
	if err != nil {
		h.fail(ctx, w, "failed to resolve grievance", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(g))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
