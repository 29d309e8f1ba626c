// Package portal implements the sign-up/login form flow and the shell that
// decides whether a browser is treated as logged in.
//
// Both types operate on a *domain.Session loaded by the HTTP layer and
// only ever replace its FormState value; persisting the session is the
// caller's job.
package portal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DukeRupert/authportal/internal/authapi"
	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/metrics"
)

// User-facing notification texts.
const (
	MsgTryAgainLater  = "An error occurred. Please try again later."
	MsgLoginSucceeded = "Login successful."
	MsgLogoutFailed   = "Logout failed. Please try again."
	MsgLogoutError    = "An error occurred during logout."
	MsgSessionExpired = "Your session has expired. Please log in again."
)

// AuthClient is the subset of the upstream API the portal needs.
type AuthClient interface {
	Register(ctx context.Context, creds domain.Credentials, req authapi.RegisterRequest) (*authapi.RegisterResponse, domain.Credentials, error)
	Login(ctx context.Context, creds domain.Credentials, req authapi.LoginRequest) (*authapi.LoginResponse, domain.Credentials, error)
	Logout(ctx context.Context, creds domain.Credentials) (*authapi.LogoutResponse, domain.Credentials, error)
}

// FieldValidator checks form fields for a mode.
type FieldValidator interface {
	Validate(fields domain.FormFields, mode domain.Mode) (domain.ErrorMap, bool)
}

// Result describes what a control press did.
type Result string

const (
	ResultToggled    Result = "toggled"    // mode switched, nothing submitted
	ResultInvalid    Result = "invalid"    // validation failed, nothing submitted
	ResultRegistered Result = "registered" // account created, now in login mode
	ResultLoggedIn   Result = "logged_in"  // login accepted
	ResultLoggedOut  Result = "logged_out" // logout accepted
	ResultRejected   Result = "rejected"   // upstream answered with an error
	ResultFailed     Result = "failed"     // upstream unreachable or unreadable
)

// LoginSuccessFunc is invoked after a successful login with the upstream
// credentials and response.
type LoginSuccessFunc func(creds domain.Credentials, resp *authapi.LoginResponse)

// Form holds the sign-up/login behavior: the mode toggle and the two
// submission flows.
type Form struct {
	validator FieldValidator
	client    AuthClient
	logger    *slog.Logger
}

// NewForm creates a Form.
func NewForm(validator FieldValidator, client AuthClient, logger *slog.Logger) *Form {
	return &Form{
		validator: validator,
		client:    client,
		logger:    logger,
	}
}

// Press handles a click on one of the two submit-area controls.
//
// The submitted values of the fields shown in the current mode are stored
// first; values typed in the other mode are kept. Pressing the control of the other mode only switches mode (and clears
// errors); pressing the control of the current mode submits.
func (f *Form) Press(ctx context.Context, sess *domain.Session, control domain.Mode, fields domain.FormFields, onLoginSuccess LoginSuccessFunc) Result {
	sess.Form = sess.Form.MergeFields(sess.Form.Mode, fields)

	if control != sess.Form.Mode {
		sess.Form = sess.Form.WithMode(control)
		metrics.FormPressed(string(control), string(ResultToggled))
		return ResultToggled
	}

	errs, valid := f.validator.Validate(sess.Form.Fields, sess.Form.Mode)
	sess.Form = sess.Form.WithErrors(errs)
	if !valid {
		for field := range errs {
			metrics.FieldInvalid(string(sess.Form.Mode), string(field))
		}
		metrics.FormPressed(string(sess.Form.Mode), string(ResultInvalid))
		return ResultInvalid
	}

	metrics.FormPressed(string(sess.Form.Mode), "submitted")
	if sess.Form.Mode == domain.ModeLogin {
		return f.login(ctx, sess, onLoginSuccess)
	}
	return f.signUp(ctx, sess)
}

func (f *Form) signUp(ctx context.Context, sess *domain.Session) Result {
	fields := sess.Form.Fields
	resp, creds, err := f.client.Register(ctx, sess.Upstream, authapi.RegisterRequest{
		Username:  fields.Username,
		Email:     fields.Email,
		Password:  fields.Password,
		FirstName: fields.FirstName,
		LastName:  fields.LastName,
	})
	sess.Upstream = creds
	if err != nil {
		return f.submitFailed(sess, "sign up", err)
	}

	f.logger.Info("user registered", "username", resp.Username, "session_id", sess.ID)
	sess.SetFlash(domain.FlashSuccess, fmt.Sprintf("User %s registered successfully!", resp.Username))
	sess.Form = sess.Form.Cleared(domain.FieldUsername).WithMode(domain.ModeLogin)
	return ResultRegistered
}

func (f *Form) login(ctx context.Context, sess *domain.Session, onLoginSuccess LoginSuccessFunc) Result {
	fields := sess.Form.Fields
	resp, creds, err := f.client.Login(ctx, sess.Upstream, authapi.LoginRequest{
		Username: fields.Username,
		Password: fields.Password,
	})
	sess.Upstream = creds
	if err != nil {
		return f.submitFailed(sess, "login", err)
	}

	message := resp.Message
	if message == "" {
		message = MsgLoginSucceeded
	}
	f.logger.Info("user logged in", "username", fields.Username, "session_id", sess.ID)
	sess.SetFlash(domain.FlashSuccess, message)
	sess.Form = sess.Form.Cleared()

	if onLoginSuccess != nil {
		onLoginSuccess(creds, resp)
	}
	return ResultLoggedIn
}

// submitFailed turns an upstream error into a notification. Server-reported
// errors are shown verbatim; everything else becomes a generic retry-later
// message. Mode and field values are left as they were.
func (f *Form) submitFailed(sess *domain.Session, action string, err error) Result {
	if detail, ok := authapi.ServerDetail(err); ok {
		f.logger.Info(action+" rejected by auth API", "error", err, "session_id", sess.ID)
		sess.SetFlash(domain.FlashError, "Error: "+detail)
		return ResultRejected
	}

	f.logger.Error("error during "+action, "error", err, "session_id", sess.ID)
	sess.SetFlash(domain.FlashError, MsgTryAgainLater)
	return ResultFailed
}
