package session

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/authportal/internal/domain"
)

// PostgresStore keeps sessions in the portal_sessions table. Expired rows
// are filtered on read and removed by Cleanup.
type PostgresStore struct {
	db    *sql.DB
	codec *Codec
	ttl   time.Duration
	now   func() time.Time
}

// NewPostgresStore creates a store on an open database. The schema is
// created by internal.RunMigrations.
func NewPostgresStore(db *sql.DB, codec *Codec, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PostgresStore{db: db, codec: codec, ttl: ttl, now: time.Now}
}

const getSessionSQL = `
SELECT data FROM portal_sessions
WHERE id = $1 AND expires_at > $2`

func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	const op = "session.postgres.get"

	var data []byte
	err := s.db.QueryRowContext(ctx, getSessionSQL, id, s.now()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(op)
	}
	if err != nil {
		return nil, domain.Unavailable(err, op, "load session")
	}

	sess, err := s.codec.Open(id, data)
	if err != nil {
		return nil, domain.Internal(err, op, "open session")
	}
	return sess, nil
}

const upsertSessionSQL = `
INSERT INTO portal_sessions (id, data, logged_in, client_ip, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    data = EXCLUDED.data,
    logged_in = EXCLUDED.logged_in,
    client_ip = EXCLUDED.client_ip,
    expires_at = EXCLUDED.expires_at,
    updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Save(ctx context.Context, sess *domain.Session) error {
	const op = "session.postgres.save"

	data, err := s.codec.Seal(sess)
	if err != nil {
		return domain.Internal(err, op, "seal session")
	}

	now := s.now()
	created := sess.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = s.db.ExecContext(ctx, upsertSessionSQL,
		sess.ID,
		data,
		sess.LoggedIn,
		clientInet(sess.ClientIP),
		now.Add(s.ttl),
		created,
		now,
	)
	if err != nil {
		return domain.Unavailable(err, op, "save session")
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE id = $1`, id); err != nil {
		return domain.Unavailable(err, "session.postgres.delete", "delete session")
	}
	return nil
}

// Cleanup removes expired rows and returns how many were dropped.
func (s *PostgresStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, domain.Unavailable(err, "session.postgres.cleanup", "delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}

// clientInet converts a textual address into a nullable inet value.
func clientInet(addr string) pqtype.Inet {
	ip := net.ParseIP(addr)
	if ip == nil {
		return pqtype.Inet{}
	}
	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		bits = 32
	}
	return pqtype.Inet{
		IPNet: net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)},
		Valid: true,
	}
}
