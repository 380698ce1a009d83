package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "staffdesk_session"

var errEmptyCookie = errors.New("session cookie carries no token")

// CookieCodec wraps session tokens in an HS256-signed value so a tampered
// cookie is rejected before any store lookup.
type CookieCodec struct {
	secret []byte
	secure bool
	ttl    time.Duration
}

// NewCookieCodec builds a codec; a zero ttl issues browser-session cookies.
func NewCookieCodec(secret string, secure bool, ttl time.Duration) (*CookieCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("cookie secret is required")
	}
	return &CookieCodec{secret: []byte(secret), secure: secure, ttl: ttl}, nil
}

func (c *CookieCodec) Encode(token string) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       token,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("verify session cookie: %w", err)
	}
	if claims.ID == "" {
		return "", errEmptyCookie
	}
	return claims.ID, nil
}

// Token returns the session token carried by r, or "" when the cookie is
// missing or fails verification.
func (c *CookieCodec) Token(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	token, err := c.Decode(cookie.Value)
	if err != nil {
		return ""
	}
	return token
}

func (c *CookieCodec) Set(w http.ResponseWriter, token string) error {
	value, err := c.Encode(token)
	if err != nil {
		return err
	}
	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if c.ttl > 0 {
		cookie.MaxAge = int(c.ttl / time.Second)
	}
	http.SetCookie(w, cookie)
	return nil
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
