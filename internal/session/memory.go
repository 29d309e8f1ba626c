package session

import (
	"context"
	"sync"
	"time"

	"github.com/DukeRupert/authportal/internal/domain"
	"github.com/DukeRupert/authportal/internal/metrics"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore keeps sessions in process memory. Suitable for a single
// instance; sessions are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	codec   *Codec
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(codec *Codec, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		codec:   codec,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	const op = "session.memory.get"

	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok || !s.now().Before(entry.expires) {
		return nil, notFound(op)
	}
	sess, err := s.codec.Open(id, entry.data)
	if err != nil {
		return nil, domain.Internal(err, op, "open session")
	}
	return sess, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *domain.Session) error {
	data, err := s.codec.Seal(sess)
	if err != nil {
		return domain.Internal(err, "session.memory.save", "seal session")
	}

	s.mu.Lock()
	s.entries[sess.ID] = memoryEntry{data: data, expires: s.now().Add(s.ttl)}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return nil
}

// Cleanup removes expired sessions and returns how many were dropped.
func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expires) {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	return removed, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
