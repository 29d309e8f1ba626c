// Package handler contains HTTP handlers for the portal.
//
// This file implements the portal page: the sign-up/login form, the
// welcome view shown once logged in, and logout.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/DukeRupert/authportal/internal/auth"
	"github.com/DukeRupert/authportal/internal/csrf"
	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/portal"
)

// =============================================================================
// Handler Configuration
// =============================================================================

// TemplateRenderer is the interface for rendering HTML templates.
// This interface allows for mocking in tests.
type TemplateRenderer interface {
	RenderHTTP(w http.ResponseWriter, name string, data interface{})
	RenderHTTPStatus(w http.ResponseWriter, status int, name string, data interface{})
}

// Shell is the portal behavior the handler drives.
type Shell interface {
	Submit(ctx context.Context, sess *domain.Session, control domain.Mode, fields domain.FormFields) portal.Result
	Logout(ctx context.Context, sess *domain.Session) portal.Result
	Refresh(sess *domain.Session) bool
}

// SessionSaver persists a portal session.
type SessionSaver interface {
	Save(ctx context.Context, sess *domain.Session) error
}

// PortalHandler handles the portal pages.
//
// Routes handled:
// - GET  /       -> Show
// - POST /submit -> Submit
// - POST /logout -> Logout
//
// Every route expects the session and CSRF middleware to have run.
type PortalHandler struct {
	shell    Shell
	sessions SessionSaver
	renderer TemplateRenderer
	logger   *slog.Logger
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(shell Shell, sessions SessionSaver, renderer TemplateRenderer, logger *slog.Logger) *PortalHandler {
	return &PortalHandler{
		shell:    shell,
		sessions: sessions,
		renderer: renderer,
		logger:   logger,
	}
}

// RegisterRoutes registers the portal routes on the provided ServeMux.
// wrap is applied to every route (session, CSRF, ...); limit is applied
// additionally to the POST routes.
func (h *PortalHandler) RegisterRoutes(mux *http.ServeMux, wrap, limit func(http.Handler) http.Handler) {
	mux.Handle("GET /{$}", wrap(http.HandlerFunc(h.Show)))
	mux.Handle("POST /submit", wrap(limit(http.HandlerFunc(h.Submit))))
	mux.Handle("POST /logout", wrap(limit(http.HandlerFunc(h.Logout))))
}

// =============================================================================
// Template Data Types
// =============================================================================

// FieldView is one rendered form input.
type FieldView struct {
	Name         string
	Type         string
	Value        string
	Error        string
	Autocomplete string
}

// PortalPageData is passed to the form and welcome templates.
type PortalPageData struct {
	CurrentPath      string
	CSRFToken        string
	Mode             domain.Mode
	Fields           []FieldView
	Flash            *domain.Flash
	ShowLostPassword bool
}

func inputType(f domain.Field) string {
	switch f {
	case domain.FieldPassword, domain.FieldConfirmPassword:
		return "password"
	case domain.FieldEmail:
		return "email"
	default:
		return "text"
	}
}

func autocomplete(f domain.Field, m domain.Mode) string {
	switch f {
	case domain.FieldUsername:
		return "username"
	case domain.FieldEmail:
		return "email"
	case domain.FieldFirstName:
		return "given-name"
	case domain.FieldLastName:
		return "family-name"
	case domain.FieldPassword:
		if m == domain.ModeLogin {
			return "current-password"
		}
		return "new-password"
	case domain.FieldConfirmPassword:
		return "new-password"
	}
	return ""
}

// newPageData builds template data from the form state. Only the fields of
// the current mode are rendered.
func newPageData(r *http.Request, state domain.FormState, flash *domain.Flash) PortalPageData {
	fields := domain.FieldsFor(state.Mode)
	views := make([]FieldView, 0, len(fields))
	for _, f := range fields {
		views = append(views, FieldView{
			Name:         string(f),
			Type:         inputType(f),
			Value:        state.Fields.Get(f),
			Error:        state.Errors[f],
			Autocomplete: autocomplete(f, state.Mode),
		})
	}

	return PortalPageData{
		CurrentPath:      r.URL.Path,
		CSRFToken:        csrf.Token(r.Context()),
		Mode:             state.Mode,
		Fields:           views,
		Flash:            flash,
		ShowLostPassword: state.Mode == domain.ModeLogin,
	}
}

// =============================================================================
// GET / - Show Form or Welcome View
// =============================================================================

// Show renders the welcome view when the Session flag is set, otherwise
// the form in its current mode. A pending flash is consumed.
func (h *PortalHandler) Show(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSessionFromRequest(r)
	if sess == nil {
		InternalErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "portal.show", "no session in context"))
		return
	}

	h.shell.Refresh(sess)
	flash := sess.TakeFlash()
	if !h.save(w, r, sess) {
		return
	}

	data := newPageData(r, sess.Form, flash)
	if sess.LoggedIn {
		h.renderer.RenderHTTP(w, "auth/welcome", data)
		return
	}
	h.renderer.RenderHTTP(w, "auth/form", data)
}

// =============================================================================
// POST /submit - Sign Up / Login Controls
// =============================================================================

// Submit handles a press of the "Sign Up" or "Login" control.
//
// Form Fields:
// - control (required): "signup" or "login", the pressed control
// - username, email, password, confirm_password, first_name, last_name
//
// Responses:
// - mode toggled, upstream rejection or failure: form re-rendered (200)
// - validation failure: form re-rendered with inline errors (422)
// - registered or logged in: redirect to / (303), the notification
//   waiting in the session
//
// Successful submissions are redirected so a reload does not resubmit.
func (h *PortalHandler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "portal.submit"

	sess := auth.GetSessionFromRequest(r)
	if sess == nil {
		InternalErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, op, "no session in context"))
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Invalid form submission. Please try again."))
		return
	}

	if sess.LoggedIn {
		h.redirectHome(w, r)
		return
	}

	control, ok := domain.ParseMode(r.PostFormValue("control"))
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Unknown form control."))
		return
	}

	fields := domain.FormFields{
		Username:        r.PostFormValue(string(domain.FieldUsername)),
		Email:           r.PostFormValue(string(domain.FieldEmail)),
		Password:        r.PostFormValue(string(domain.FieldPassword)),
		ConfirmPassword: r.PostFormValue(string(domain.FieldConfirmPassword)),
		FirstName:       r.PostFormValue(string(domain.FieldFirstName)),
		LastName:        r.PostFormValue(string(domain.FieldLastName)),
	}

	result := h.shell.Submit(r.Context(), sess, control, fields)

	if result == portal.ResultLoggedIn || result == portal.ResultRegistered {
		if h.save(w, r, sess) {
			h.redirectHome(w, r)
		}
		return
	}

	// Rendered in this response, so the flash must not be shown again.
	flash := sess.TakeFlash()
	if !h.save(w, r, sess) {
		return
	}

	status := http.StatusOK
	if result == portal.ResultInvalid {
		status = http.StatusUnprocessableEntity
	}
	h.renderer.RenderHTTPStatus(w, status, "auth/form", newPageData(r, sess.Form, flash))
}

// =============================================================================
// POST /logout - Logout Control
// =============================================================================

// Logout ends the upstream session. The outcome is shown as a flash on the
// page the browser is redirected to.
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := auth.GetSessionFromRequest(r)
	if sess == nil {
		InternalErrorResponse(w, r, h.logger, domain.Errorf(domain.EINTERNAL, "portal.logout", "no session in context"))
		return
	}

	if sess.LoggedIn {
		h.shell.Logout(r.Context(), sess)
		if !h.save(w, r, sess) {
			return
		}
	}

	h.redirectHome(w, r)
}

// =============================================================================
// GET /health
// =============================================================================

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// =============================================================================
// Helpers
// =============================================================================

func (h *PortalHandler) redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// save persists the session, writing an error response on failure.
func (h *PortalHandler) save(w http.ResponseWriter, r *http.Request, sess *domain.Session) bool {
	if err := h.sessions.Save(r.Context(), sess); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return false
	}
	return true
}
