// Package session persists portal sessions and provides the cookie
// constants shared by the handler and middleware packages.
//
// A session is always stored sealed (see Codec); stores only ever see
// opaque bytes keyed by session ID.
package session

import (
	"context"
	"time"

	"github.com/DukeRupert/authportal/internal/domain"
)

const (
	// CookieName is the name of the cookie that stores the session ID.
	CookieName = "authportal_session"

	// CookiePath ensures the cookie is sent with all requests.
	CookiePath = "/"

	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 24 * time.Hour
)

// Store loads and saves sessions by ID.
type Store interface {
	// Get returns the session with the given ID, or an ENOTFOUND error
	// when it does not exist or has expired.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save writes the session and extends its expiry.
	Save(ctx context.Context, sess *domain.Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// Janitor is implemented by stores that must purge expired sessions
// themselves.
type Janitor interface {
	Cleanup(ctx context.Context) (int, error)
}

func notFound(op string) error {
	return domain.Errorf(domain.ENOTFOUND, op, "session not found")
}

// IsNotFound reports whether err means the session does not exist.
func IsNotFound(err error) bool {
	return domain.ErrorCode(err) == domain.ENOTFOUND
}

// RunJanitor calls Cleanup every interval until ctx is done.
func RunJanitor(ctx context.Context, j Janitor, interval time.Duration, logf func(msg string, args ...any)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := j.Cleanup(ctx)
			if err != nil {
				logf("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logf("expired sessions removed", "count", n)
			}
		}
	}
}
