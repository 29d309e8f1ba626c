package middleware

import (
	"log/slog"
	"net/http"

	"github.com/DukeRupert/authportal/internal/csrf"
	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/handler"
)

// CSRFMiddleware issues the double-submit token on every request and
// rejects unsafe methods whose submitted token does not match.
type CSRFMiddleware struct {
	logger   *slog.Logger
	isSecure bool
}

// NewCSRFMiddleware creates a new CSRF middleware.
func NewCSRFMiddleware(logger *slog.Logger, isSecure bool) *CSRFMiddleware {
	return &CSRFMiddleware{logger: logger, isSecure: isSecure}
}

// Handler returns middleware that enforces the CSRF token.
func (m *CSRFMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !csrf.ValidateRequest(r) {
				m.logger.Warn("csrf token mismatch", "path", r.URL.Path, "ip", getClientIP(r))
				handler.ErrorResponse(w, r, m.logger,
					domain.Forbidden("csrf.validate", "Invalid security token. Please reload the page and try again."))
				return
			}
		}

		token, err := csrf.EnsureToken(w, r, m.isSecure)
		if err != nil {
			handler.InternalErrorResponse(w, r, m.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(csrf.WithToken(r.Context(), token)))
	})
}
