package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DukeRupert/authportal/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Error Response Tests - Security Focus
// =============================================================================

func serveError(err error, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, newTestLogger(), err)
	return rec
}

func TestErrorResponse_InternalErrorHidesDetails(t *testing.T) {
	cause := errors.New(`pq: relation "portal_sessions" does not exist`)
	err := domain.Internal(cause, "session.postgres.get", "load session")

	for _, accept := range []string{"text/html", "application/json"} {
		t.Run(accept, func(t *testing.T) {
			rec := serveError(err, accept)
			body := rec.Body.String()

			if rec.Code != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", rec.Code)
			}
			for _, leak := range []string{"pq:", "portal_sessions", "session.postgres"} {
				if strings.Contains(body, leak) {
					t.Errorf("response exposes %q: %s", leak, body)
				}
			}
			if !strings.Contains(body, "internal error") {
				t.Errorf("response should contain generic message, got: %s", body)
			}
		})
	}
}

func TestErrorResponse_UpstreamFailureHidesDetails(t *testing.T) {
	err := domain.Unavailable(errors.New("dial tcp 10.0.0.5:8000: connection refused"), "authapi.login", "auth API unreachable")

	rec := serveError(err, "text/html")

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.5") {
		t.Errorf("response exposes upstream address: %s", rec.Body.String())
	}
}

func TestErrorResponse_UnwrappedErrorReturnsGeneric(t *testing.T) {
	rec := serveError(errors.New(`FATAL: password authentication failed for user "postgres"`), "text/html")

	body := rec.Body.String()
	if strings.Contains(body, "FATAL") || strings.Contains(body, "postgres") {
		t.Errorf("response exposes raw error: %s", body)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestErrorResponse_JSONShape(t *testing.T) {
	rec := serveError(domain.Forbidden("csrf.validate", "Invalid security token."), "application/json")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}

	var got JSONError
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if got.Error.Code != domain.EFORBIDDEN || got.Error.Message != "Invalid security token." {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestErrorResponse_BrowserFormPostGetsText(t *testing.T) {
	rec := serveError(domain.Invalid("portal.submit", "Unknown form control."), "text/html,application/xhtml+xml")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Error("browser form posts should not get JSON")
	}
	if !strings.Contains(rec.Body.String(), "Unknown form control.") {
		t.Errorf("expected message in body, got: %s", rec.Body.String())
	}
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		domain.EINVALID:      http.StatusBadRequest,
		domain.EUNAUTHORIZED: http.StatusUnauthorized,
		domain.EFORBIDDEN:    http.StatusForbidden,
		domain.ENOTFOUND:     http.StatusNotFound,
		domain.ECONFLICT:     http.StatusConflict,
		domain.ERATELIMIT:    http.StatusTooManyRequests,
		domain.EUNAVAILABLE:  http.StatusBadGateway,
		domain.EINTERNAL:     http.StatusInternalServerError,
		"something_else":     http.StatusInternalServerError,
	}

	for code, want := range tests {
		if got := ErrorCodeToHTTPStatus(code); got != want {
			t.Errorf("ErrorCodeToHTTPStatus(%q) = %d, want %d", code, got, want)
		}
	}
}
