package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DukeRupert/authportal/internal/csrf"
)

// =============================================================================
// CSRF Middleware Tests
// =============================================================================

func csrfProtected(reached *bool, token *string) http.Handler {
	mw := NewCSRFMiddleware(discardLogger(), false)
	return mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		*token = csrf.Token(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestCSRFMiddleware_GetIssuesToken(t *testing.T) {
	var reached bool
	var token string
	rec := httptest.NewRecorder()

	csrfProtected(&reached, &token).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !reached {
		t.Fatal("GET should reach the handler")
	}
	if token == "" {
		t.Fatal("expected a token in the request context")
	}

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrf.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != token {
		t.Fatalf("expected CSRF cookie carrying the context token, got %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Errorf("unexpected cookie attributes: %+v", cookie)
	}
}

func TestCSRFMiddleware_GetReusesExistingToken(t *testing.T) {
	var reached bool
	var token string
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: "existing-token"})
	rec := httptest.NewRecorder()

	csrfProtected(&reached, &token).ServeHTTP(rec, req)

	if token != "existing-token" {
		t.Errorf("expected existing token, got %q", token)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no new cookie should be issued")
	}
}

func TestCSRFMiddleware_Post(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		form       url.Values
		header     string
		accept     string
		wantStatus int
	}{
		{"matching form field", "tok", url.Values{csrf.FormFieldName: {"tok"}}, "", "", http.StatusOK},
		{"matching header", "tok", url.Values{}, "tok", "", http.StatusOK},
		{"missing cookie", "", url.Values{csrf.FormFieldName: {"tok"}}, "", "", http.StatusForbidden},
		{"missing field", "tok", url.Values{}, "", "", http.StatusForbidden},
		{"mismatch", "tok", url.Values{csrf.FormFieldName: {"other"}}, "", "", http.StatusForbidden},
		{"json mismatch", "tok", url.Values{}, "other", "application/json", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			var token string
			req := postForm(tt.form)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrf.HeaderName, tt.header)
			}
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()

			csrfProtected(&reached, &token).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if reached != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler reached = %v", reached)
			}
			if tt.accept == "application/json" && !strings.Contains(rec.Body.String(), `"forbidden"`) {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}
