package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staffdesk/portal/internal/apperr"
)

// PostgresUserStore reads and writes the users table created by the
// migrations package.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) (*PostgresUserStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &PostgresUserStore{db: db}, nil
}

func (s *PostgresUserStore) Insert(ctx context.Context, username, passwordHash string) (int64, error) {
	const q = `INSERT INTO users (username, password_hash) VALUES ($1, $2) RETURNING id`
	var id int64
	if err := s.db.QueryRowContext(ctx, q, username, passwordHash).Scan(&id); err != nil {
		return 0, apperr.Storage(err, "insert user")
	}
	return id, nil
}

func (s *PostgresUserStore) FindByUsername(ctx context.Context, username string) (User, error) {
	const q = `
SELECT id, username, password_hash, created_at
FROM users
WHERE username = $1
ORDER BY id
LIMIT 1`
	var u User
	err := s.db.QueryRowContext(ctx, q, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, apperr.Storage(err, "query user")
	}
	return u, nil
}
