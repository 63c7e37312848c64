package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	id "campusvote/pkg/domain"
	"campusvote/pkg/requestcontext"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireRole(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RequireRole(logger, id.RoleAdmin, id.RoleHouse, id.RoleSociety)(okHandler())

	tests := []struct {
		role id.Role
		want int
	}{
		{id.RoleAdmin, http.StatusNoContent},
		{id.RoleHouse, http.StatusNoContent},
		{id.RoleSociety, http.StatusNoContent},
		{id.RoleUser, http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/elections", nil)
			ctx := requestcontext.WithCaller(r.Context(), requestcontext.Principal{
				UserID: id.UserID(uuid.New()),
				Role:   tt.role,
			})
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r.WithContext(ctx))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("rejects missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAdminToken("scrape-secret", logger)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("accepts matching token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		r.Header.Set("X-Admin-Token", "scrape-secret")
		w := httptest.NewRecorder()
		RequireAdminToken("scrape-secret", logger)(okHandler()).ServeHTTP(w, r)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("empty expected token disables the check", func(t *testing.T) {
		w := httptest.NewRecorder()
		RequireAdminToken("", logger)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
