// Package middleware contains HTTP middleware for the portal.
//
// Middleware functions follow the standard Go pattern of wrapping http.Handler.
// They are designed to be composed using a middleware stack approach.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DukeRupert/authportal/internal/auth"
	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/session"
)

// =============================================================================
// Session Middleware
// =============================================================================

// SessionMiddleware loads the portal session of the browser, creating a new
// one when the cookie is missing, malformed or points at an expired session.
//
// The session is placed in the request context (see auth.GetSession).
// Handlers that change it are responsible for saving it.
type SessionMiddleware struct {
	store    session.Store
	logger   *slog.Logger
	isSecure bool // Whether to set Secure flag on cookies (true in production)
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware(store session.Store, logger *slog.Logger, isSecure bool, ttl time.Duration) *SessionMiddleware {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &SessionMiddleware{
		store:    store,
		logger:   logger,
		isSecure: isSecure,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Handler returns middleware that attaches the portal session.
//
// Flow:
//
//	Request -> Session -> Handler
//	           |
//	           +-> Read cookie
//	           +-> Load session (new one if missing or expired)
//	           +-> Refresh cookie expiry
//	           +-> Set session in context
//	           +-> Call next handler (always)
func (m *SessionMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := m.load(r)
		sess.ClientIP = getClientIP(r)

		setSessionCookie(w, sess.ID, m.ttl, m.isSecure)

		ctx := auth.SetSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) load(r *http.Request) *domain.Session {
	cookie, err := r.Cookie(session.CookieName)
	if err == nil {
		if _, perr := uuid.Parse(cookie.Value); perr == nil {
			sess, err := m.store.Get(r.Context(), cookie.Value)
			if err == nil {
				return sess
			}
			if !session.IsNotFound(err) {
				m.logger.Warn("failed to load session, starting a new one", "error", err)
			}
		}
	}

	return domain.NewSession(uuid.NewString(), m.now())
}

// setSessionCookie writes the session cookie with a sliding expiry.
func setSessionCookie(w http.ResponseWriter, id string, ttl time.Duration, isSecure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     session.CookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// =============================================================================
// Helper Functions
// =============================================================================

// isAPIRequest checks if the request is an API request (expects JSON response).
func isAPIRequest(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}

	return strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// Stack composes middlewares so the first one listed runs first.
//
// Usage:
//
//	chain := middleware.Stack(logging.Handler, security.Handler, sessions.Handler)
//	mux.Handle("GET /", chain(handler))
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
