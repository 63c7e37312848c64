// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets services and workers import it without pulling in transport code.
//
// Usage in services (read values):
//
//	caller := requestcontext.Caller(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithCaller(ctx, requestcontext.Principal{UserID: voter, Role: id.RoleUser})
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"slices"
	"time"

	id "campusvote/pkg/domain"
)

type (
	callerKey      struct{}
	tokenKey       struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

var (
	ContextKeyCaller      = callerKey{}
	ContextKeyToken       = tokenKey{}
	ContextKeyClientIP    = clientIPKey{}
	ContextKeyUserAgent   = userAgentKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Authenticated caller
// -----------------------------------------------------------------------------

// Principal is the authenticated caller as seen by services.
type Principal struct {
	UserID     id.UserID
	Role       id.Role
	HouseID    *id.HouseID
	SocietyIDs []id.SocietyID
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == id.RoleAdmin }

// InHouse reports whether the caller belongs to the given house.
func (p Principal) InHouse(houseID id.HouseID) bool {
	return p.HouseID != nil && *p.HouseID == houseID
}

// InSociety reports whether the caller belongs to the given society.
func (p Principal) InSociety(societyID id.SocietyID) bool {
	return slices.Contains(p.SocietyIDs, societyID)
}

// Caller returns the authenticated caller, or the zero Principal when unset.
func Caller(ctx context.Context) Principal {
	if p, ok := ctx.Value(ContextKeyCaller).(Principal); ok {
		return p
	}
	return Principal{}
}

// WithCaller injects the authenticated caller into the context.
func WithCaller(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, p)
}

// UserID is shorthand for Caller(ctx).UserID.
func UserID(ctx context.Context) id.UserID {
	return Caller(ctx).UserID
}

// Token describes the access token that authenticated the request.
type Token struct {
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AccessToken returns the validated token metadata, if any.
func AccessToken(ctx context.Context) (Token, bool) {
	t, ok := ctx.Value(ContextKeyToken).(Token)
	return t, ok
}

// WithAccessToken injects token metadata into the context.
func WithAccessToken(ctx context.Context, t Token) context.Context {
	return context.WithValue(ctx, ContextKeyToken, t)
}

// -----------------------------------------------------------------------------
// Client metadata (IP, User-Agent)
// -----------------------------------------------------------------------------

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the User-Agent from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(ContextKeyUserAgent).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent into a context.
// Useful for service unit tests that don't run the full HTTP middleware chain.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyClientIP, clientIP)
	ctx = context.WithValue(ctx, ContextKeyUserAgent, userAgent)
	return ctx
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
