package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"campusvote/internal/auth/service"
	"campusvote/internal/auth/webhook"
	userhandler "campusvote/internal/user/handler"
	userModels "campusvote/internal/user/models"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/requestcontext"
)

const eventUserCreated = "user.created"

type Service interface {
	AdminLogin(ctx context.Context, email, password string) (*service.LoginResult, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context) error
	Onboard(ctx context.Context, in service.OnboardUser) (*userModels.User, error)
	Status(ctx context.Context) (*userModels.User, error)
	HandleUserCreated(ctx context.Context, in service.ExternalUser) (*userModels.User, error)
}

type Handler struct {
	auth     Service
	verifier *webhook.Verifier
	logger   *slog.Logger
}

// New builds the handler. A nil verifier disables the webhook route.
func New(auth Service, verifier *webhook.Verifier, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, verifier: verifier, logger: logger}
}

// RegisterAdminLogin mounts the admin sign-in outside /api.
func (h *Handler) RegisterAdminLogin(r chi.Router) {
	r.Post("/admin/auth", h.HandleAdminLogin)
}

// RegisterPublic mounts routes that run before authentication.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	if h.verifier != nil {
		r.Post("/webhooks", h.HandleWebhook)
	}
}

// Register mounts routes for authenticated callers.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Patch("/auth/onboarding", h.HandleOnboarding)
	r.Get("/auth/status", h.HandleStatus)
}

type LoginResponse struct {
	Token     string                   `json:"token"`
	ExpiresAt time.Time                `json:"expiresAt"`
	User      userhandler.UserResponse `json:"user"`
}

func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.AdminLogin)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.auth.Login)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, login func(context.Context, string, string) (*service.LoginResult, error)) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	result, err := login(ctx, req.Email, req.Password)
	if err != nil {
		h.fail(ctx, w, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      userhandler.ToResponse(result.User),
	})
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.auth.Logout(ctx); err != nil {
		h.fail(ctx, w, "failed to log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[OnboardingRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	user, err := h.auth.Onboard(ctx, service.OnboardUser{
		Name:       req.Name,
		StudentID:  req.StudentID,
		HouseID:    req.houseID,
		SocietyIDs: req.societyIDs,
	})
	if err != nil {
		h.fail(ctx, w, "failed to onboard user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userhandler.ToResponse(user))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.auth.Status(ctx)
	if err != nil {
		h.fail(ctx, w, "failed to load status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userhandler.ToResponse(user))
}

// HandleWebhook accepts signed identity provider deliveries. Events other
// than user.created are acknowledged and ignored.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httputil.DefaultBodyLimit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	if err := h.verifier.Verify(r.Header, body, requestcontext.Now(ctx)); err != nil {
		h.fail(ctx, w, "rejected webhook delivery", err)
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return
	}
	if event.Type != eventUserCreated {
		h.logger.InfoContext(ctx, "ignoring webhook event",
			"request_id", requestcontext.RequestID(ctx),
			"type", event.Type,
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	user, err := h.auth.HandleUserCreated(ctx, service.ExternalUser{
		ExternalID: event.Data.ID,
		Email:      event.Data.primaryEmail(),
		FirstName:  event.Data.FirstName,
		LastName:   event.Data.LastName,
	})
	if err != nil {
		h.fail(ctx, w, "failed to handle webhook", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, userhandler.ToResponse(user))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
