package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"staffdesk/portal/internal/apperr"
)

// PostgresSessionStore keeps sessions in the sessions table. Only the
// SHA-256 of each token is stored.
type PostgresSessionStore struct {
	db *sql.DB
}

func NewPostgresSessionStore(db *sql.DB) (*PostgresSessionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return &PostgresSessionStore{db: db}, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *PostgresSessionStore) Get(ctx context.Context, token string) (Session, error) {
	const q = `
SELECT session_id, username, created_at, expires_at
FROM sessions
WHERE token_hash = $1`
	sess := Session{Token: token}
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx, q, hashToken(token)).Scan(&sess.ID, &sess.Username, &sess.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, apperr.Storage(err, "query session")
	}
	if expires.Valid {
		sess.ExpiresAt = expires.Time
	}
	return sess, nil
}

func (s *PostgresSessionStore) Put(ctx context.Context, sess Session) error {
	const q = `
INSERT INTO sessions (token_hash, session_id, username, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (token_hash) DO UPDATE
SET username = EXCLUDED.username,
	expires_at = EXCLUDED.expires_at`
	expires := sql.NullTime{Time: sess.ExpiresAt, Valid: !sess.ExpiresAt.IsZero()}
	if _, err := s.db.ExecContext(ctx, q, hashToken(sess.Token), sess.ID, sess.Username, sess.CreatedAt, expires); err != nil {
		return apperr.Storage(err, "save session")
	}
	return nil
}

func (s *PostgresSessionStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(token)); err != nil {
		return apperr.Storage(err, "delete session")
	}
	return nil
}

func (s *PostgresSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < $1`
	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, apperr.Storage(err, "purge sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Storage(err, "purge sessions")
	}
	return n, nil
}

func (s *PostgresSessionStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, apperr.Storage(err, "count sessions")
	}
	return n, nil
}
