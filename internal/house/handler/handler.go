package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/house/models"
	"campusvote/internal/house/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/platform/middleware/admin"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context) ([]*models.House, error)
	Get(ctx context.Context, houseID id.HouseID) (*models.House, error)
	Create(ctx context.Context, in service.CreateHouse) (*models.House, error)
	Update(ctx context.Context, houseID id.HouseID, in service.UpdateHouse) (*models.House, error)
	Delete(ctx context.Context, houseID id.HouseID) error
	AddMembers(ctx context.Context, houseID id.HouseID, userIDs []id.UserID) (*models.House, error)
	RemoveMember(ctx context.Context, houseID id.HouseID, userID id.UserID) (*models.House, error)
}

type Handler struct {
	houses Service
	logger *slog.Logger
}

func New(houses Service, logger *slog.Logger) *Handler {
	return &Handler{houses: houses, logger: logger}
}

// RegisterPublic mounts the read-only routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/houses", h.HandleList)
	r.Get("/houses/{id}", h.HandleGet)
}

// Register mounts the admin routes. The router must already require
// authentication.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(h.logger))
		r.Post("/houses", h.HandleCreate)
		r.Patch("/houses/{id}", h.HandleUpdate)
		r.Delete("/houses/{id}", h.HandleDelete)
		r.Post("/houses/{id}/members", h.HandleAddMembers)
		r.Delete("/houses/{id}/members/{userId}", h.HandleRemoveMember)
	})
}

type HouseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	Logo        string    `json:"logo,omitempty"`
	Members     []string  `json:"members"`
	Secretaries []string  `json:"secretaries"`
	Active      bool      `json:"active"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type HouseListResponse struct {
	Results int             `json:"results"`
	Houses  []HouseResponse `json:"houses"`
}

func toResponse(house *models.House) HouseResponse {
	resp := HouseResponse{
		ID:          house.ID.String(),
		Name:        house.Name,
		Description: house.Description,
		Color:       house.Color,
		Logo:        house.Logo,
		Members:     make([]string, 0, len(house.Members)),
		Secretaries: make([]string, 0, len(house.Secretaries)),
		Active:      house.Active,
		CreatedBy:   house.CreatedBy.String(),
		CreatedAt:   house.CreatedAt,
		UpdatedAt:   house.UpdatedAt,
	}
	for _, m := range house.Members {
		resp.Members = append(resp.Members, m.String())
	}
	for _, s := range house.Secretaries {
		resp.Secretaries = append(resp.Secretaries, s.String())
	}
	return resp
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houses, err := h.houses.List(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to list houses", err)
		return
	}
	resp := HouseListResponse{Results: len(houses), Houses: make([]HouseResponse, 0, len(houses))}
	for _, house := range houses {
		resp.Houses = append(resp.Houses, toResponse(house))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houseID, ok := h.houseID(w, r)
	if !ok {
		return
	}
	house, err := h.houses.Get(ctx, houseID)
	if err != nil {
		h.fail(ctx, w, "failed to load house", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(house))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateHouseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	house, err := h.houses.Create(ctx, service.CreateHouse{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Logo:        req.Logo,
	})
	if err != nil {
		h.fail(ctx, w, "failed to create house", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(house))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houseID, ok := h.houseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateHouseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	house, err := h.houses.Update(ctx, houseID, service.UpdateHouse{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		Logo:        req.Logo,
		Active:      req.Active,
		Secretaries: req.secretaries,
	})
	if err != nil {
		h.fail(ctx, w, "failed to update house", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(house))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houseID, ok := h.houseID(w, r)
	if !ok {
		return
	}
	if err := h.houses.Delete(ctx, houseID); err != nil {
		h.fail(ctx, w, "failed to delete house", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houseID, ok := h.houseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddMembersRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	house, err := h.houses.AddMembers(ctx, houseID, req.userIDs)
	if err != nil {
		h.fail(ctx, w, "failed to add house members", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(house))
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	houseID, ok := h.houseID(w, r)
	if !ok {
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	house, err := h.houses.RemoveMember(ctx, houseID, userID)
	if err != nil {
		h.fail(ctx, w, "failed to remove house member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(house))
}

func (h *Handler) houseID(w http.ResponseWriter, r *http.Request) (id.HouseID, bool) {
	houseID, err := id.ParseHouseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return houseID, false
	}
	return houseID, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
