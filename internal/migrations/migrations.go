// Package migrations owns the Postgres schema: embedded goose migrations,
// their status, and waiting for the database to accept connections.
package migrations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

//go:embed sql/*.sql
var embedded embed.FS

type Status struct {
	Version  int64  `json:"version"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	Applied  bool   `json:"applied"`
}

// goose keeps its FS and dialect in package state.
var gooseMu sync.Mutex

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

var gooseVersion = func(ctx context.Context, db *sql.DB) (int64, error) {
	return goose.GetDBVersionContext(ctx, db)
}

type Service struct {
	db    *sql.DB
	files fs.FS
	log   *slog.Logger
}

func NewService(db *sql.DB, log *slog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if log == nil {
		log = slog.Default()
	}
	files, err := fs.Sub(embedded, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return &Service{db: db, files: files, log: log}, nil
}

func (s *Service) configure() error {
	goose.SetBaseFS(s.files)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Up applies every pending migration.
func (s *Service) Up(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := s.configure(); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, s.db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, err := gooseVersion(ctx, s.db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	s.log.InfoContext(ctx, "migrations applied", "version", version)
	return nil
}

// Status lists the embedded migrations in version order and whether the
// database has reached each one.
func (s *Service) Status(ctx context.Context) ([]Status, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := s.configure(); err != nil {
		return nil, err
	}
	current, err := gooseVersion(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	collected, err := goose.CollectMigrations(".", 0, goose.MaxVersion)
	if err != nil {
		return nil, fmt.Errorf("collect migrations: %w", err)
	}

	out := make([]Status, 0, len(collected))
	for _, m := range collected {
		name := path.Base(m.Source)
		sum, err := checksum(s.files, name)
		if err != nil {
			return nil, err
		}
		out = append(out, Status{
			Version:  m.Version,
			Name:     name,
			Checksum: sum,
			Applied:  m.Version <= current,
		})
	}
	return out, nil
}

func checksum(files fs.FS, name string) (string, error) {
	b, err := fs.ReadFile(files, name)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// WaitForDB pings db until it answers or timeout elapses.
func WaitForDB(ctx context.Context, db *sql.DB, timeout time.Duration, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	backoff := retry.WithMaxDuration(timeout, retry.WithCappedDuration(2*time.Second, retry.NewExponential(100*time.Millisecond)))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.DebugContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("database not ready after %s: %w", timeout, err)
	}
	return nil
}
