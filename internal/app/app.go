package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"staffdesk/portal/internal/audit"
	"staffdesk/portal/internal/auth"
	"staffdesk/portal/internal/config"
	"staffdesk/portal/internal/httpserver"
	"staffdesk/portal/internal/migrations"
	"staffdesk/portal/internal/observability"
	"staffdesk/portal/internal/resource"
)

type App struct {
	cfg      config.Config
	log      *slog.Logger
	db       *sql.DB
	sessions *auth.SessionManager
	server   *httpserver.Server
}

// OpenDB connects to cfg.DatabaseURL and waits up to cfg.DatabaseWait for
// the server to answer.
func OpenDB(ctx context.Context, cfg config.Config, log *slog.Logger) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.WaitForDB(ctx, db, cfg.DatabaseWait, log); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// New assembles the application. With a database URL every store lives in
// Postgres and pending migrations are applied first; otherwise state is
// kept in JSON files.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = observability.NewLogger(cfg.Log.Format, cfg.Log.Level, os.Stderr)
	}

	db, err := prepareDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a, err := build(ctx, cfg, logger, db)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return a, nil
}

// prepareDB opens and migrates the configured database. It returns nil
// when no database URL is set.
func prepareDB(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := OpenDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	migrator, err := migrations.NewService(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create migration service: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// CreateUser registers a user against the configured storage without
// starting the server.
func CreateUser(ctx context.Context, cfg config.Config, logger *slog.Logger, username, password string) (int64, error) {
	db, err := prepareDB(ctx, cfg, logger)
	if err != nil {
		return 0, err
	}
	if db != nil {
		defer db.Close()
	}
	svc, _, err := newAuthService(cfg, logger, db)
	if err != nil {
		return 0, err
	}
	return svc.Register(ctx, username, password)
}

func newAuthService(cfg config.Config, logger *slog.Logger, db *sql.DB) (*auth.Service, *auth.SessionManager, error) {
	users, sessionStore, err := openAuthStores(cfg, db)
	if err != nil {
		return nil, nil, err
	}
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("create password hasher: %w", err)
	}
	sessions, err := auth.NewSessionManager(sessionStore, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("create session manager: %w", err)
	}
	svc, err := auth.NewService(users, auth.ServiceConfig{
		Hasher:   hasher,
		Sessions: sessions,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create auth service: %w", err)
	}
	return svc, sessions, nil
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger, db *sql.DB) (*App, error) {
	authService, sessions, err := newAuthService(cfg, logger, db)
	if err != nil {
		return nil, err
	}
	employees, products, err := openResourceStores(cfg, db)
	if err != nil {
		return nil, err
	}

	if cfg.Auth.BootstrapUsername != "" {
		created, err := authService.EnsureUser(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword)
		if err != nil {
			return nil, fmt.Errorf("create bootstrap user: %w", err)
		}
		if created {
			logger.InfoContext(ctx, "bootstrap auth user created", "username", cfg.Auth.BootstrapUsername)
		}
	}

	if cfg.Auth.SessionSecret == config.DefaultSessionSecret {
		logger.WarnContext(ctx, "using the default session secret; set AUTH_SESSION_SECRET")
	}
	cookies, err := httpserver.NewCookieCodec(cfg.Auth.SessionSecret, cfg.HTTP.CookieSecure, cfg.Auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create cookie codec: %w", err)
	}

	metrics := observability.NewMetrics()
	metrics.TrackActiveSessions(func() float64 {
		n, err := sessions.Count(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	deps := httpserver.Deps{
		Auth:       authService,
		Employees:  employees,
		Products:   products,
		Cookies:    cookies,
		Audit:      audit.NewLogger(cfg.AuditLogFile, logger),
		Metrics:    metrics,
		Logger:     logger,
		StaticDir:  cfg.StaticDir,
		TrustProxy: cfg.HTTP.TrustProxy,
	}
	if db != nil {
		deps.Ready = db.PingContext
	}
	server, err := httpserver.New(cfg.HTTP, deps)
	if err != nil {
		return nil, fmt.Errorf("create http server: %w", err)
	}

	return &App{
		cfg:      cfg,
		log:      logger,
		db:       db,
		sessions: sessions,
		server:   server,
	}, nil
}

func openAuthStores(cfg config.Config, db *sql.DB) (auth.UserStore, auth.SessionStore, error) {
	if db != nil {
		users, err := auth.NewPostgresUserStore(db)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres user store: %w", err)
		}
		sessions, err := auth.NewPostgresSessionStore(db)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres session store: %w", err)
		}
		return users, sessions, nil
	}
	users, err := auth.NewFileUserStore(cfg.Auth.UserStateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create user store: %w", err)
	}
	sessions, err := auth.NewFileSessionStore(cfg.Auth.SessionStateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create session store: %w", err)
	}
	return users, sessions, nil
}

func openResourceStores(cfg config.Config, db *sql.DB) (resource.Store[resource.Employee], resource.Store[resource.Product], error) {
	if db != nil {
		employees, err := resource.NewPGStore(db, resource.EmployeeSchema)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres employee store: %w", err)
		}
		products, err := resource.NewPGStore(db, resource.ProductSchema)
		if err != nil {
			return nil, nil, fmt.Errorf("create postgres product store: %w", err)
		}
		return employees, products, nil
	}
	employees, err := resource.NewFileStore(resource.EmployeeSchema, cfg.EmployeeStateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create employee store: %w", err)
	}
	products, err := resource.NewFileStore(resource.ProductSchema, cfg.ProductStateFile)
	if err != nil {
		return nil, nil, fmt.Errorf("create product store: %w", err)
	}
	return employees, products, nil
}

func (a *App) Run(ctx context.Context) error {
	defer func() {
		if a.db != nil {
			_ = a.db.Close()
		}
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.purgeLoop(purgeCtx)
	}()
	defer func() {
		stopPurge()
		wg.Wait()
	}()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server starting", "addr", a.cfg.HTTP.Addr)
		errCh <- a.server.Start()
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server exited: %w", err)
	}
}

// purgeLoop drops expired sessions every SessionPurgeInterval until ctx ends.
func (a *App) purgeLoop(ctx context.Context) {
	interval := a.cfg.Auth.SessionPurgeInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sessions.PurgeExpired(ctx)
			if err != nil {
				a.log.WarnContext(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				a.log.DebugContext(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
