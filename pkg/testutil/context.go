package testutil

import (
	"net/http"
	"time"

	id "campusvote/pkg/domain"
	"campusvote/pkg/requestcontext"
)

// WithCaller places an authenticated principal on the request, as the auth
// middleware would.
func WithCaller(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), p))
}

// AsUser authenticates the request as userID with role and no memberships.
func AsUser(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	return WithCaller(req, requestcontext.Principal{UserID: userID, Role: role})
}

// WithTime fixes the request-scoped clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithClient sets the client IP and User-Agent read by services.
func WithClient(req *http.Request, clientIP, userAgent string) *http.Request {
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent))
}
