// Package httpapi assembles the HTTP surface: the process-wide middleware
// chain, operational endpoints, and every module's routes under /api.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	platformmetrics "campusvote/internal/platform/metrics"
	platformmw "campusvote/internal/platform/middleware"
	"campusvote/pkg/platform/httputil"
	"campusvote/pkg/platform/middleware/admin"
	"campusvote/pkg/platform/middleware/metadata"
	"campusvote/pkg/platform/middleware/request"
	"campusvote/pkg/platform/middleware/requesttime"
)

// Registrar mounts routes that require an authenticated caller.
type Registrar interface {
	Register(r chi.Router)
}

// PublicRegistrar mounts routes that run before authentication.
type PublicRegistrar interface {
	RegisterPublic(r chi.Router)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Environment    string
	CORSOrigins    []string
	BodyLimitBytes int64
	MetricsToken   string
}

// Deps is everything the router needs. Nil optional fields disable the
// corresponding feature.
type Deps struct {
	Config  Config
	Logger  *slog.Logger
	Metrics *platformmetrics.Metrics

	// RequireAuth authenticates the caller; it guards Protected and Admin.
	RequireAuth func(http.Handler) http.Handler
	RateLimit   func(http.Handler) http.Handler

	// Root routes mount outside /api without authentication (admin login).
	Root      []func(chi.Router)
	Public    []PublicRegistrar
	Protected []Registrar
	// Admin routes mount outside /api behind authentication.
	Admin []Registrar

	Checks  map[string]HealthCheck
	Started time.Time
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(platformmw.Recover(d.Logger))
	r.Use(platformmw.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	r.Use(platformmw.CORS(d.Config.CORSOrigins))
	if d.Config.BodyLimitBytes > 0 {
		r.Use(chimw.RequestSize(d.Config.BodyLimitBytes))
	}
	r.NotFound(platformmw.NotFound)
	r.MethodNotAllowed(platformmw.MethodNotAllowed)

	r.Get("/health", healthHandler(d.Checks))
	r.With(admin.RequireAdminToken(d.Config.MetricsToken, d.Logger)).Get("/metrics", platformmetrics.Handler().ServeHTTP)

	for _, mount := range d.Root {
		mount(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(d.RequireAuth)
		for _, h := range d.Admin {
			h.Register(r)
		}
	})

	r.Route("/api", func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit)
		}
		r.Get("/status", statusHandler(d.Config.Environment, d.Started))
		for _, h := range d.Public {
			h.RegisterPublic(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(d.RequireAuth)
			for _, h := range d.Protected {
				h.Register(r)
			}
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}

type statusResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Uptime      string `json:"uptime"`
}

func statusHandler(environment string, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, statusResponse{
			Status:      "running",
			Environment: environment,
			Uptime:      time.Since(started).Truncate(time.Second).String(),
		})
	}
}
