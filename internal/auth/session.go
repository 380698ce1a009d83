package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const tokenBytes = 32

// SessionManager issues and resolves session tokens on top of a
// SessionStore. Mutations are serialized so a concurrent Destroy cannot
// be undone by an in-flight Attach.
type SessionManager struct {
	store    SessionStore
	ttl      time.Duration
	nowFunc  func() time.Time
	newToken func() (string, error)

	mu sync.Mutex
}

// NewSessionManager returns a manager whose sessions live for ttl; a zero
// ttl means sessions never expire.
func NewSessionManager(store SessionStore, ttl time.Duration) (*SessionManager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("session TTL must be >= 0")
	}
	return &SessionManager{
		store:    store,
		ttl:      ttl,
		nowFunc:  time.Now,
		newToken: generateToken,
	}, nil
}

// Create issues a fresh anonymous session.
func (m *SessionManager) Create(ctx context.Context) (Session, error) {
	token, err := m.newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generate token: %w", err)
	}
	now := m.nowFunc().UTC()
	sess := Session{
		ID:        uuid.NewString(),
		Token:     token,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		sess.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Lookup returns the live session for token. Expired sessions are removed
// and reported as ErrInvalidToken.
func (m *SessionManager) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrInvalidToken
	}
	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if sess.ExpiredAt(m.nowFunc()) {
		m.mu.Lock()
		_ = m.store.Delete(ctx, token)
		m.mu.Unlock()
		return Session{}, ErrInvalidToken
	}
	return sess, nil
}

// Attach binds username to the session behind token. Attaching the same
// username twice is a no-op; a session already bound to another user is
// rejected with ErrInvalidToken.
func (m *SessionManager) Attach(ctx context.Context, token, username string) (Session, error) {
	if username == "" {
		return Session{}, fmt.Errorf("attach session: username is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.store.Get(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if sess.ExpiredAt(m.nowFunc()) {
		_ = m.store.Delete(ctx, token)
		return Session{}, ErrInvalidToken
	}
	if sess.Username == username {
		return sess, nil
	}
	if sess.Username != "" {
		return Session{}, ErrInvalidToken
	}
	sess.Username = username
	if err := m.store.Put(ctx, sess); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Identity reports the username bound to token. Unknown, expired and
// anonymous sessions, as well as store failures, all report false.
func (m *SessionManager) Identity(ctx context.Context, token string) (string, bool) {
	sess, err := m.Lookup(ctx, token)
	if err != nil || !sess.Authenticated() {
		return "", false
	}
	return sess.Username, true
}

// Destroy removes the session behind token. Unknown tokens are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(ctx, token)
}

func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.DeleteExpired(ctx, m.nowFunc())
}

func (m *SessionManager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
