package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

type stubRevocations map[string]bool

func (s stubRevocations) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	return s[jti], nil
}

type stubLoader struct {
	err error
}

func (s stubLoader) LoadPrincipal(_ context.Context, userID id.UserID, _ time.Time) (requestcontext.Principal, error) {
	if s.err != nil {
		return requestcontext.Principal{}, s.err
	}
	return requestcontext.Principal{UserID: userID, Role: id.RoleUser}, nil
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()
	validClaims := &JWTClaims{UserID: userID.String(), Role: "user", JTI: "jti-1", IssuedAt: time.Now()}

	var gotCaller requestcontext.Principal
	var gotToken requestcontext.Token
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCaller = requestcontext.Caller(r.Context())
		gotToken, _ = requestcontext.AccessToken(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	serve := func(mw func(http.Handler) http.Handler, authz string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		w := httptest.NewRecorder()
		mw(next).ServeHTTP(w, r)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		w := serve(RequireAuth(stubValidator{claims: validClaims}, nil, stubLoader{}, logger), "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "You are not logged in")
	})

	t.Run("invalid token", func(t *testing.T) {
		w := serve(RequireAuth(stubValidator{err: errors.New("bad sig")}, nil, stubLoader{}, logger), "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("revoked token", func(t *testing.T) {
		w := serve(RequireAuth(stubValidator{claims: validClaims}, stubRevocations{"jti-1": true}, stubLoader{}, logger), "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "revoked")
	})

	t.Run("principal rejected", func(t *testing.T) {
		loader := stubLoader{err: dErrors.New(dErrors.CodeUnauthorized, "user recently changed password")}
		w := serve(RequireAuth(stubValidator{claims: validClaims}, stubRevocations{}, loader, logger), "Bearer abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("loader failure is internal", func(t *testing.T) {
		loader := stubLoader{err: errors.New("db down")}
		w := serve(RequireAuth(stubValidator{claims: validClaims}, stubRevocations{}, loader, logger), "Bearer abc")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("valid token populates caller", func(t *testing.T) {
		w := serve(RequireAuth(stubValidator{claims: validClaims}, stubRevocations{}, stubLoader{}, logger), "Bearer abc")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id.UserID(userID), gotCaller.UserID)
		assert.Equal(t, "jti-1", gotToken.JTI)
	})
}
