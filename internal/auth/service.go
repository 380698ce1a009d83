package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staffdesk/portal/internal/apperr"
)

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrRegistrationFailed = errors.New("registration failed")
	ErrIncorrectPassword  = errors.New("incorrect password")
)

// Service implements registration, login and logout over a UserStore,
// a PasswordHasher and a SessionManager.
type Service struct {
	users    UserStore
	hasher   PasswordHasher
	sessions *SessionManager
	log      *slog.Logger
}

type ServiceConfig struct {
	Hasher   PasswordHasher
	Sessions *SessionManager
	Logger   *slog.Logger
}

func NewService(userStore UserStore, cfg ServiceConfig) (*Service, error) {
	if userStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("password hasher is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:    userStore,
		hasher:   cfg.Hasher,
		sessions: cfg.Sessions,
		log:      log,
	}, nil
}

// Register creates a user. It never creates or touches a session.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return 0, apperr.Validation(ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.ErrorContext(ctx, "hash password failed", "error", err)
		return 0, apperr.Validation(ErrRegistrationFailed)
	}
	id, err := s.users.Insert(ctx, username, hash)
	if err != nil {
		s.log.ErrorContext(ctx, "insert user failed", "error", err, "context", apperr.Context(err))
		return 0, apperr.Storage(ErrRegistrationFailed, "register user")
	}
	s.log.InfoContext(ctx, "user registered", "user_id", id)
	return id, nil
}

// Login verifies credentials and attaches username to the session behind
// token. A fresh session is created when token does not resolve to one;
// a session bound to a different user is destroyed and replaced.
func (s *Service) Login(ctx context.Context, token, username, password string) (Session, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.log.ErrorContext(ctx, "user lookup failed", "error", err)
		}
		return Session{}, apperr.Auth(ErrUserNotFound)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, apperr.Auth(ErrIncorrectPassword)
	}

	sess, err := s.sessions.Lookup(ctx, token)
	if err == nil && sess.Authenticated() && sess.Username != u.Username {
		// Never hand another user's session to this one.
		if err := s.sessions.Destroy(ctx, token); err != nil {
			return Session{}, fmt.Errorf("destroy foreign session: %w", err)
		}
		err = ErrInvalidToken
	}
	if err != nil {
		if sess, err = s.sessions.Create(ctx); err != nil {
			return Session{}, fmt.Errorf("create session: %w", err)
		}
	}
	sess, err = s.sessions.Attach(ctx, sess.Token, u.Username)
	if err != nil {
		return Session{}, fmt.Errorf("attach session: %w", err)
	}
	s.log.InfoContext(ctx, "login succeeded", "user_id", u.ID, "session_id", sess.ID)
	return sess, nil
}

// Logout destroys the session behind token, whatever its state.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *Service) Identity(ctx context.Context, token string) (string, bool) {
	return s.sessions.Identity(ctx, token)
}

func (s *Service) Lookup(ctx context.Context, token string) (Session, error) {
	return s.sessions.Lookup(ctx, token)
}

// EnsureUser registers username unless a user with that name exists.
func (s *Service) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}
	if _, err := s.Register(ctx, username, password); err != nil {
		return false, err
	}
	return true, nil
}
