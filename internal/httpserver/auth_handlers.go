package httpserver

import (
	"errors"
	"net/http"

	"staffdesk/portal/internal/apperr"
	"staffdesk/portal/internal/audit"
	"staffdesk/portal/internal/auth"
)

func registerAuthHandlers(mux *http.ServeMux, deps Deps) {
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		username, _ := deps.Auth.Identity(r.Context(), deps.Cookies.Token(r))
		render(w, r, deps, "home.html", pageData{Username: username})
	})

	mux.HandleFunc("GET /register", func(w http.ResponseWriter, r *http.Request) {
		render(w, r, deps, "register.html", pageData{})
	})

	mux.HandleFunc("POST /register", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeText(w, http.StatusBadRequest, "Error registering user.")
			return
		}
		username := r.PostForm.Get("username")
		id, err := deps.Auth.Register(r.Context(), username, r.PostForm.Get("password"))
		if err != nil {
			deps.Metrics.AuthEvent("register", audit.OutcomeFailure)
			auditReq(deps, r, audit.Event{Actor: username, Action: "auth.register", Outcome: audit.OutcomeFailure, Detail: string(apperr.KindOf(err))})
			writeText(w, statusFor(err), "Error registering user.")
			return
		}
		deps.Metrics.AuthEvent("register", audit.OutcomeSuccess)
		auditReq(deps, r, audit.Event{Actor: username, Action: "auth.register", Target: formatID(id), Outcome: audit.OutcomeSuccess})
		http.Redirect(w, r, "/login", http.StatusFound)
	})

	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		render(w, r, deps, "login.html", pageData{})
	})

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeText(w, http.StatusBadRequest, "User not found.")
			return
		}
		username := r.PostForm.Get("username")
		sess, err := deps.Auth.Login(r.Context(), deps.Cookies.Token(r), username, r.PostForm.Get("password"))
		if err != nil {
			deps.Metrics.AuthEvent("login", audit.OutcomeFailure)
			auditReq(deps, r, audit.Event{Actor: username, Action: "auth.login", Outcome: audit.OutcomeFailure, Detail: loginFailure(err)})
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				writeText(w, statusFor(err), "User not found.")
			case errors.Is(err, auth.ErrIncorrectPassword):
				writeText(w, statusFor(err), "Incorrect password.")
			default:
				deps.Logger.ErrorContext(r.Context(), "login failed", "error", err)
				writeText(w, http.StatusInternalServerError, "Error logging in.")
			}
			return
		}
		if err := deps.Cookies.Set(w, sess.Token); err != nil {
			deps.Logger.ErrorContext(r.Context(), "set session cookie failed", "error", err)
			writeText(w, http.StatusInternalServerError, "Error logging in.")
			return
		}
		deps.Metrics.AuthEvent("login", audit.OutcomeSuccess)
		auditReq(deps, r, audit.Event{Actor: sess.Username, Action: "auth.login", Outcome: audit.OutcomeSuccess, SessionID: sess.ID})
		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("GET /logout", func(w http.ResponseWriter, r *http.Request) {
		token := deps.Cookies.Token(r)
		sess, _ := deps.Auth.Lookup(r.Context(), token)
		if err := deps.Auth.Logout(r.Context(), token); err != nil {
			deps.Logger.ErrorContext(r.Context(), "logout failed", "session_id", sess.ID, "error", err)
		}
		deps.Cookies.Clear(w)
		deps.Metrics.AuthEvent("logout", audit.OutcomeSuccess)
		if sess.ID != "" {
			auditReq(deps, r, audit.Event{Actor: sess.Username, Action: "auth.logout", Outcome: audit.OutcomeSuccess, SessionID: sess.ID})
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

func loginFailure(err error) string {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, auth.ErrIncorrectPassword):
		return "incorrect password"
	default:
		return "internal error"
	}
}
