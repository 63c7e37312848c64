package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/society/models"
	"campusvote/internal/society/service"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/platform/middleware/admin"
	"campusvote/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, category models.Category) ([]*models.Society, error)
	Get(ctx context.Context, societyID id.SocietyID) (*models.Society, error)
	Create(ctx context.Context, in service.CreateSociety) (*models.Society, error)
	Update(ctx context.Context, societyID id.SocietyID, in service.UpdateSociety) (*models.Society, error)
	Delete(ctx context.Context, societyID id.SocietyID) error
	AddMembers(ctx context.Context, societyID id.SocietyID, members []service.NewMember) (*models.Society, error)
	RemoveMember(ctx context.Context, societyID id.SocietyID, userID id.UserID) (*models.Society, error)
}

type Handler struct {
	societies Service
	logger    *slog.Logger
}

func New(societies Service, logger *slog.Logger) *Handler {
	return &Handler{societies: societies, logger: logger}
}

func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/societies", h.HandleList)
	r.Get("/societies/{id}", h.HandleGet)
}

// Register mounts the authenticated routes. Membership routes authorize
// inside the service so society leads can use them.
func (h *Handler) Register(r chi.Router) {
	r.Post("/societies/{id}/members", h.HandleAddMembers)
	r.Delete("/societies/{id}/members/{userId}", h.HandleRemoveMember)

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdmin(h.logger))
		r.Post("/societies", h.HandleCreate)
		r.Patch("/societies/{id}", h.HandleUpdate)
		r.Delete("/societies/{id}", h.HandleDelete)
	})
}

type CreateSocietyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Logo        string `json:"logo"`
}

func (r *CreateSocietyRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "society name is required")
	}
	return nil
}

type UpdateSocietyRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Logo        *string `json:"logo"`
	Active      *bool   `json:"active"`
}

func (r *UpdateSocietyRequest) Validate() error {
	if r.Category != nil {
		c := strings.ToLower(strings.TrimSpace(*r.Category))
		r.Category = &c
	}
	return nil
}

type AddMembersRequest struct {
	Members []struct {
		User string `json:"user"`
		Role string `json:"role"`
	} `json:"members"`

	members []service.NewMember
}

func (r *AddMembersRequest) Validate() error {
	if len(r.Members) == 0 {
		return dErrors.New(dErrors.CodeValidation, "members must contain at least one entry")
	}
	for _, m := range r.Members {
		userID, err := id.ParseUserID(strings.TrimSpace(m.User))
		if err != nil {
			return err
		}
		r.members = append(r.members, service.NewMember{UserID: userID, Role: models.MemberRole(m.Role)})
	}
	return nil
}

type MemberResponse struct {
	User     string    `json:"user"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type SocietyResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Logo        string           `json:"logo,omitempty"`
	Members     []MemberResponse `json:"members"`
	Leads       []string         `json:"leads"`
	Active      bool             `json:"active"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type SocietyListResponse struct {
	Results   int               `json:"results"`
	Societies []SocietyResponse `json:"societies"`
}

func toResponse(s *models.Society) SocietyResponse {
	resp := SocietyResponse{
		ID:          s.ID.String(),
		Name:        s.Name,
		Description: s.Description,
		Category:    string(s.Category),
		Logo:        s.Logo,
		Members:     make([]MemberResponse, 0, len(s.Members)),
		Leads:       []string{},
		Active:      s.Active,
		CreatedBy:   s.CreatedBy.String(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, m := range s.Members {
		resp.Members = append(resp.Members, MemberResponse{User: m.UserID.String(), Role: string(m.Role), JoinedAt: m.JoinedAt})
	}
	for _, l := range s.Leads() {
		resp.Leads = append(resp.Leads, l.String())
	}
	return resp
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	category := models.Category(strings.ToLower(r.URL.Query().Get("category")))
	societies, err := h.societies.List(ctx, category)
	if err != nil {
		h.fail(ctx, w, "failed to list societies", err)
		return
	}
	resp := SocietyListResponse{Results: len(societies), Societies: make([]SocietyResponse, 0, len(societies))}
	for _, s := range societies {
		resp.Societies = append(resp.Societies, toResponse(s))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	societyID, err := id.ParseSocietyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	society, err := h.societies.Get(ctx, societyID)
	if err != nil {
		h.fail(ctx, w, "failed to load society", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(society))
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateSocietyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	society, err := h.societies.Create(ctx, service.CreateSociety{
		Name:        req.Name,
		Description: req.Description,
		Category:    models.Category(req.Category),
		Logo:        req.Logo,
	})
	if err != nil {
		h.fail(ctx, w, "failed to create society", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(society))
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	societyID, err := id.ParseSocietyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateSocietyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	in := service.UpdateSociety{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		Active:      req.Active,
	}
	if req.Category != nil {
		c := models.Category(*req.Category)
		in.Category = &c
	}
	society, err := h.societies.Update(ctx, societyID, in)
	if err != nil {
		h.fail(ctx, w, "failed to update society", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(society))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	societyID, err := id.ParseSocietyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.societies.Delete(ctx, societyID); err != nil {
		h.fail(ctx, w, "failed to delete society", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	societyID, err := id.ParseSocietyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AddMembersRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	society, err := h.societies.AddMembers(ctx, societyID, req.members)
	if err != nil {
		h.fail(ctx, w, "failed to add society members", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(society))
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	societyID, err := id.ParseSocietyID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "userId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	society, err := h.societies.RemoveMember(ctx, societyID, userID)
	if err != nil {
		h.fail(ctx, w, "failed to remove society member", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(society))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}
