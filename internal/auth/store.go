package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type UserStore interface {
	// Insert stores a new user and returns its id. Duplicate usernames are accepted.
	Insert(ctx context.Context, username, passwordHash string) (int64, error)
	// FindByUsername returns the matching user with the lowest id, or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (User, error)
}

type InMemoryUserStore struct {
	mu     sync.RWMutex
	users  []User
	nextID int64
	now    func() time.Time
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{nextID: 1, now: time.Now}
}

func (s *InMemoryUserStore) Insert(_ context.Context, username, passwordHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(username, passwordHash), nil
}

func (s *InMemoryUserStore) insertLocked(username, passwordHash string) int64 {
	id := s.nextID
	s.nextID++
	s.users = append(s.users, User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	})
	return id
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// users is kept in id order, so the first match is the lowest id.
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
