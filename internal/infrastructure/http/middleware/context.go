package middleware

import (
	"context"

	"github.com/forgeboard/authkit/internal/domain"
)

type contextKey string

const (
	authUserContextKey  contextKey = "auth_user"
	sessionIDContextKey contextKey = "session_id"
)

// WithAuthUser injects the resolved identity into the context.
func WithAuthUser(ctx context.Context, user *domain.AuthUser) context.Context {
	return context.WithValue(ctx, authUserContextKey, user)
}

// AuthUserFromContext returns the resolved identity, or nil.
func AuthUserFromContext(ctx context.Context) *domain.AuthUser {
	v := ctx.Value(authUserContextKey)
	if v == nil {
		return nil
	}
	u, _ := v.(*domain.AuthUser)
	return u
}

// WithSessionID records the session id the request authenticated with.
// Requests authenticated by API key carry no session id.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDContextKey, sessionID)
}

// SessionIDFromContext returns the authenticating session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	v := ctx.Value(sessionIDContextKey)
	if v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
