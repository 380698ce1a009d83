package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/portal/internal/auth"
)

func useTempState(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AUTH_USER_STATE_FILE", filepath.Join(dir, "users.json"))
	t.Setenv("AUTH_SESSION_STATE_FILE", filepath.Join(dir, "sessions.json"))
	t.Setenv("EMPLOYEE_STATE_FILE", filepath.Join(dir, "employees.json"))
	t.Setenv("PRODUCT_STATE_FILE", filepath.Join(dir, "products.json"))
	t.Setenv("AUDIT_LOG_FILE", filepath.Join(dir, "audit.log"))
	configFile = ""
	return dir
}

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	for _, sub := range []string{"serve", "migrate", "wait-db", "user"} {
		assert.Contains(t, output, sub, "Help missing %q command", sub)
	}
	assert.Contains(t, output, "--http-addr")
}

func TestUserCreate_ReadsPasswordFromStdin(t *testing.T) {
	dir := useTempState(t)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("hunter2\n"))
	cmd.SetArgs([]string{"user", "create", "--username", "dave", "--password-stdin", "--bcrypt-cost", "4"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "user dave created with id 1")

	users, err := auth.NewFileUserStore(filepath.Join(dir, "users.json"))
	require.NoError(t, err)
	u, err := users.FindByUsername(context.Background(), "dave")
	require.NoError(t, err)
	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("hunter2", u.PasswordHash))
}

func TestUserCreate_RequiresUsername(t *testing.T) {
	useTempState(t)

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"user", "create", "--password-stdin"})

	require.Error(t, cmd.Execute())
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	useTempState(t)

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "up"})

	err := cmd.Execute()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "DB_CONNECT_FAILED", oopsErr.Code())
}

func TestServe_InvalidConfig(t *testing.T) {
	useTempState(t)
	t.Setenv("AUTH_BCRYPT_COST", "99")

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "CONFIG_INVALID", oopsErr.Code())
}
