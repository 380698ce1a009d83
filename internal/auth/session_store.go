package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"staffdesk/portal/internal/apperr"
)

// SessionStore persists sessions keyed by token. Get returns
// ErrInvalidToken for unknown tokens.
type SessionStore interface {
	Get(ctx context.Context, token string) (Session, error)
	Put(ctx context.Context, sess Session) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int, error)
}

// MemorySessionStore keeps sessions in process memory, keyed by the
// sha256 of their token. With a non-empty path every mutation is written
// through to a JSON file, which therefore never holds a raw token.
type MemorySessionStore struct {
	path string

	mu       sync.RWMutex
	sessions map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func NewFileSessionStore(path string) (*MemorySessionStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session state file path is required")
	}
	s := &MemorySessionStore{path: path, sessions: make(map[string]Session)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[hashToken(token)]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	sess.Token = token
	return sess, nil
}

func (s *MemorySessionStore) Put(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshotLocked()
	s.sessions[hashToken(sess.Token)] = sess
	return s.commitLocked(prev, "save session")
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := hashToken(token)
	if _, ok := s.sessions[key]; !ok {
		return nil
	}
	prev := s.snapshotLocked()
	delete(s.sessions, key)
	return s.commitLocked(prev, "delete session")
}

func (s *MemorySessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.snapshotLocked()
	var n int64
	for key, sess := range s.sessions {
		if sess.ExpiredAt(now) {
			delete(s.sessions, key)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.commitLocked(prev, "purge sessions"); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *MemorySessionStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// snapshotLocked copies the map for rollback. Pure in-memory stores have
// nothing to roll back and skip the copy.
func (s *MemorySessionStore) snapshotLocked() map[string]Session {
	if s.path == "" {
		return nil
	}
	return maps.Clone(s.sessions)
}

// commitLocked persists the current map, restoring prev on failure.
func (s *MemorySessionStore) commitLocked(prev map[string]Session, op string) error {
	if s.path == "" {
		return nil
	}
	if err := s.persistLocked(); err != nil {
		s.sessions = prev
		return apperr.Storage(err, op)
	}
	return nil
}

func (s *MemorySessionStore) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read session state: %w", err)
	}
	if len(b) == 0 {
		return nil
	}
	state := make(map[string]Session)
	if err := json.Unmarshal(b, &state); err != nil {
		return fmt.Errorf("decode session state: %w", err)
	}
	s.sessions = state
	return nil
}

func (s *MemorySessionStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir session state dir: %w", err)
	}
	b, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session state: %w", err)
	}
	return nil
}
