package portal

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/authportal/internal/authapi"
	"github.com/DukeRupert/authportal/internal/domain"
)

// Shell owns the Session flag. It renders nothing itself; the HTTP layer
// asks it to act and then shows either the form or the welcome view
// depending on Session.LoggedIn.
type Shell struct {
	form   *Form
	client AuthClient
	logger *slog.Logger
	now    func() time.Time
}

// NewShell creates a Shell around a Form.
func NewShell(form *Form, client AuthClient, logger *slog.Logger) *Shell {
	return &Shell{
		form:   form,
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Submit forwards a control press to the form. A successful login flips
// the Session flag and keeps the upstream credentials.
func (s *Shell) Submit(ctx context.Context, sess *domain.Session, control domain.Mode, fields domain.FormFields) Result {
	return s.form.Press(ctx, sess, control, fields, func(creds domain.Credentials, _ *authapi.LoginResponse) {
		sess.LoggedIn = true
		sess.Upstream = creds
	})
}

// Logout ends the upstream session. The Session flag is only cleared when
// the API confirms the logout.
func (s *Shell) Logout(ctx context.Context, sess *domain.Session) Result {
	resp, creds, err := s.client.Logout(ctx, sess.Upstream)
	if err != nil {
		sess.Upstream = creds
		if _, answered := authapi.AsAPIError(err); answered {
			s.logger.Info("logout rejected by auth API", "error", err, "session_id", sess.ID)
			sess.SetFlash(domain.FlashError, MsgLogoutFailed)
			return ResultRejected
		}
		s.logger.Error("error during logout", "error", err, "session_id", sess.ID)
		sess.SetFlash(domain.FlashError, MsgLogoutError)
		return ResultFailed
	}

	s.logger.Info("user logged out", "session_id", sess.ID)
	sess.SetFlash(domain.FlashSuccess, resp.Message)
	sess.LoggedIn = false
	sess.Upstream = domain.Credentials{}
	return ResultLoggedOut
}

// Refresh drops the Session flag when the upstream bearer token has
// expired. It returns true when the session changed.
func (s *Shell) Refresh(sess *domain.Session) bool {
	if !sess.LoggedIn || sess.Upstream.AccessToken == "" {
		return false
	}
	if !authapi.TokenExpired(sess.Upstream.AccessToken, s.now()) {
		return false
	}

	s.logger.Info("upstream access token expired", "session_id", sess.ID)
	sess.LoggedIn = false
	sess.Upstream = domain.Credentials{}
	sess.Form = sess.Form.WithMode(domain.ModeLogin)
	sess.SetFlash(domain.FlashInfo, MsgSessionExpired)
	return true
}
