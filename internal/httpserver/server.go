package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"staffdesk/portal/internal/apperr"
	"staffdesk/portal/internal/audit"
	"staffdesk/portal/internal/auth"
	"staffdesk/portal/internal/config"
	"staffdesk/portal/internal/observability"
	"staffdesk/portal/internal/resource"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Login(ctx context.Context, token, username, password string) (auth.Session, error)
	Logout(ctx context.Context, token string) error
	Identity(ctx context.Context, token string) (string, bool)
	Lookup(ctx context.Context, token string) (auth.Session, error)
}

type AuditLogger interface {
	Log(ctx context.Context, e audit.Event) error
}

type Deps struct {
	Auth      AuthService
	Employees resource.Store[resource.Employee]
	Products  resource.Store[resource.Product]
	Cookies   *CookieCodec
	Audit     AuditLogger
	Metrics   *observability.Metrics
	Logger    *slog.Logger
	StaticDir string
	// TrustProxy takes client addresses from X-Forwarded-For/X-Real-IP;
	// otherwise only RemoteAddr is used.
	TrustProxy bool
	// Ready reports whether backing storage is reachable; nil means always ready.
	Ready func(ctx context.Context) error
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return fmt.Errorf("auth service is required")
	case d.Employees == nil || d.Products == nil:
		return fmt.Errorf("employee and product stores are required")
	case d.Cookies == nil:
		return fmt.Errorf("cookie codec is required")
	}
	return nil
}

type Server struct {
	httpServer *http.Server
}

func New(cfg config.HTTPConfig, deps Deps) (*Server, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	handler := NewHandler(deps)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           loggingMiddleware(handler, deps.Logger, deps.Metrics),
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}, nil
}

func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				deps.Logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	mux.Handle("GET /metrics", deps.Metrics.Handler())
	mux.HandleFunc("GET /test", func(w http.ResponseWriter, _ *http.Request) {
		writeText(w, http.StatusOK, "✅ TEST ROUTE WORKS")
	})

	registerAuthHandlers(mux, deps)

	gate := requireSession(deps)
	employees := &resourceRoutes[resource.Employee]{
		singular: "employee",
		plural:   "employees",
		label:    "Employee",
		store:    deps.Employees,
		parse:    resource.EmployeeFromForm,
		listView: "employees.html",
		formView: "employee_form.html",
		deps:     deps,
	}
	employees.register(mux, gate)
	products := &resourceRoutes[resource.Product]{
		singular: "product",
		plural:   "products",
		label:    "Product",
		store:    deps.Products,
		parse:    resource.ProductFromForm,
		listView: "products.html",
		formView: "product_form.html",
		deps:     deps,
	}
	products.register(mux, gate)

	registerStaticHandlers(mux, deps.StaticDir)

	return mux
}

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

// statusFor maps an error kind to the response status; unclassified
// errors are server faults.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func loggingMiddleware(next http.Handler, log *slog.Logger, metrics *observability.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		// The mux records the matched pattern on r.
		metrics.ObserveRequest(r.Pattern, rec.status)
		log.InfoContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", r.Pattern,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		)
	})
}

type requestIDKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(requestIDKey{}).(string); ok {
		return s
	}
	return ""
}

func clientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return remoteHost(r)
	}
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// auditReq records e enriched with request metadata. Audit failures are
// logged and never fail the request.
func auditReq(deps Deps, r *http.Request, e audit.Event) {
	if deps.Audit == nil {
		return
	}
	e.RequestID = requestIDFromContext(r.Context())
	e.RemoteIP = clientIP(r, deps.TrustProxy)
	if err := deps.Audit.Log(r.Context(), e); err != nil {
		deps.Logger.WarnContext(r.Context(), "audit write failed", "action", e.Action, "error", err)
	}
}
