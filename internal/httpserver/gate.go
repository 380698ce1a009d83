package httpserver

import (
	"context"
	"net/http"
)

type usernameKey struct{}

// UsernameFromContext returns the username placed on the request by the
// access gate.
func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey{}).(string)
	return name, ok && name != ""
}

// requireSession lets a request through only when its cookie resolves to
// an authenticated session; everyone else is sent to /login.
func requireSession(deps Deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := deps.Auth.Identity(r.Context(), deps.Cookies.Token(r))
			if !ok {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), usernameKey{}, username)))
		})
	}
}
