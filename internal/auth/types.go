package auth

import "time"

// User is a registered account. Usernames are not unique; lookups
// resolve to the lowest id.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is server-side state keyed by an opaque token. A session with
// an empty Username is anonymous. Token is never serialized.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	// Zero means the session never expires.
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) Authenticated() bool {
	return s.Username != ""
}

func (s Session) ExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
