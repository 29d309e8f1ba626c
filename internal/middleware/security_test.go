package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Security Headers Middleware Tests
// =============================================================================

func serveSecured(isSecure bool, method, path string) *httptest.ResponseRecorder {
	mw := NewSecurityHeadersMiddleware(isSecure)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	rec := serveSecured(true, http.MethodGet, "/")

	tests := []struct {
		header   string
		expected string
	}{
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "same-origin"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	}

	for _, tc := range tests {
		if got := rec.Header().Get(tc.header); got != tc.expected {
			t.Errorf("%s: expected %q, got %q", tc.header, tc.expected, got)
		}
	}

	if rec.Body.String() != "OK" {
		t.Errorf("expected request to pass through, got body %q", rec.Body.String())
	}
}

func TestSecurityHeadersMiddleware_HSTS(t *testing.T) {
	hsts := serveSecured(true, http.MethodGet, "/").Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") || !strings.Contains(hsts, "includeSubDomains") {
		t.Errorf("unexpected HSTS header in production: %q", hsts)
	}

	if hsts := serveSecured(false, http.MethodGet, "/").Header().Get("Strict-Transport-Security"); hsts != "" {
		t.Errorf("expected no HSTS header in development, got %q", hsts)
	}
}

func TestSecurityHeadersMiddleware_CSPIsSelfOnly(t *testing.T) {
	csp := serveSecured(true, http.MethodGet, "/").Header().Get("Content-Security-Policy")

	for _, directive := range []string{
		"default-src 'self'",
		"script-src 'self'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"form-action 'self'",
	} {
		if !strings.Contains(csp, directive) {
			t.Errorf("CSP missing directive %q: %s", directive, csp)
		}
	}

	// No third-party origins and no inline scripts
	if strings.Contains(csp, "https:") || strings.Contains(csp, "script-src 'self' 'unsafe-inline'") {
		t.Errorf("CSP should be self-only for scripts: %s", csp)
	}
}

func TestSecurityHeadersMiddleware_CacheControl(t *testing.T) {
	tests := []struct {
		method, path string
		wantNoStore  bool
	}{
		{http.MethodGet, "/", true},
		{http.MethodPost, "/submit", true},
		{http.MethodPost, "/logout", true},
		{http.MethodGet, "/static/css/portal.css", false},
		{http.MethodGet, "/health", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := serveSecured(false, tt.method, tt.path).Header().Get("Cache-Control")
			if tt.wantNoStore && got != "no-store" {
				t.Errorf("expected no-store, got %q", got)
			}
			if !tt.wantNoStore && got != "" {
				t.Errorf("expected no Cache-Control, got %q", got)
			}
		})
	}
}
