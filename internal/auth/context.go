// Package auth carries the portal session of the current request.
//
// This package is imported by both middleware and handler packages without
// causing import cycles.
package auth

import (
	"context"
	"net/http"

	"github.com/DukeRupert/authportal/internal/domain"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const sessionContextKey contextKey = "portal_session"

// GetSession retrieves the portal session from the context.
//
// Returns nil when the request did not pass through the session middleware.
func GetSession(ctx context.Context) *domain.Session {
	sess, ok := ctx.Value(sessionContextKey).(*domain.Session)
	if !ok {
		return nil
	}
	return sess
}

// GetSessionFromRequest is a convenience wrapper around GetSession.
func GetSessionFromRequest(r *http.Request) *domain.Session {
	return GetSession(r.Context())
}

// SetSession stores a portal session in the context.
func SetSession(ctx context.Context, sess *domain.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// IsLoggedIn reports whether the request's session has the Session flag set.
func IsLoggedIn(ctx context.Context) bool {
	sess := GetSession(ctx)
	return sess != nil && sess.LoggedIn
}
