package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"

	"staffdesk/portal/internal/auth"
	"staffdesk/portal/internal/config"
	"staffdesk/portal/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fileConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.HTTP.ShutdownTimeout = 5 * time.Second
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.SessionPurgeInterval = 10 * time.Millisecond
	cfg.Auth.UserStateFile = filepath.Join(dir, "users.json")
	cfg.Auth.SessionStateFile = filepath.Join(dir, "sessions.json")
	cfg.EmployeeStateFile = filepath.Join(dir, "employees.json")
	cfg.ProductStateFile = filepath.Join(dir, "products.json")
	cfg.AuditLogFile = filepath.Join(dir, "audit.log")
	cfg.StaticDir = dir
	return cfg
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := fileConfig(t)
	a, err := New(context.Background(), cfg, observability.DiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReportsListenFailure(t *testing.T) {
	cfg := fileConfig(t)
	cfg.HTTP.Addr = "256.0.0.1:bad"
	a, err := New(context.Background(), cfg, observability.DiscardLogger())
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server exited")
}

func TestBootstrapUserCreatedOnce(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Auth.BootstrapUsername = "admin"
	cfg.Auth.BootstrapPassword = "s3cret"

	for i := 0; i < 2; i++ {
		_, err := New(context.Background(), cfg, observability.DiscardLogger())
		require.NoError(t, err)
	}

	users, err := auth.NewFileUserStore(cfg.Auth.UserStateFile)
	require.NoError(t, err)
	u, err := users.FindByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	_, err = users.Insert(context.Background(), "probe", "x")
	require.NoError(t, err)
	probe, err := users.FindByUsername(context.Background(), "probe")
	require.NoError(t, err)
	assert.Equal(t, int64(2), probe.ID, "bootstrap must not insert a second admin row")
}

func TestNewRejectsBadSecret(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Auth.SessionSecret = ""
	_, err := New(context.Background(), cfg, observability.DiscardLogger())
	require.Error(t, err)
}

func TestBuildWithPostgresStores(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := fileConfig(t)
	cfg.DatabaseURL = "postgres://example"
	a, err := build(context.Background(), cfg, observability.DiscardLogger(), db)
	require.NoError(t, err)
	assert.Same(t, db, a.db)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenDBRequiresURL(t *testing.T) {
	_, err := OpenDB(context.Background(), config.Default(), observability.DiscardLogger())
	require.Error(t, err)
}

func TestCreateUser(t *testing.T) {
	cfg := fileConfig(t)

	id, err := CreateUser(context.Background(), cfg, observability.DiscardLogger(), "carol", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	_, err = CreateUser(context.Background(), cfg, observability.DiscardLogger(), "", "pw")
	require.Error(t, err)
}

func TestDefaultSessionSecretWarns(t *testing.T) {
	cfg := fileConfig(t)
	var buf bytes.Buffer
	_, err := New(context.Background(), cfg, observability.NewLogger("json", "warn", &buf))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "default session secret")

	buf.Reset()
	cfg = fileConfig(t)
	cfg.Auth.SessionSecret = "rotated"
	_, err = New(context.Background(), cfg, observability.NewLogger("json", "warn", &buf))
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "default session secret")
}
