package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "coffee", cmd.Use)

	cfg := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfg)
	assert.Equal(t, "c", cfg.Shorthand)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"serve"},
		{"migrate"},
		{"reset"},
		{"staff", "grant"},
		{"staff", "revoke"},
		{"staff", "token"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "app:\n  env: test\nstorage:\n  driver: sqlite\nsqlite:\n  path: " +
		filepath.Join(dir, "coffee.db") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateResetAndStaff(t *testing.T) {
	cfg := writeConfig(t)

	_, err := run(t, "--config", cfg, "migrate")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "reset")
	require.NoError(t, err)
	assert.Equal(t, "reset 0 subscription(s)\n", out)

	out, err = run(t, "--config", cfg, "staff", "grant", "barista", "--telegram-id", "42")
	require.NoError(t, err)
	assert.Equal(t, "barista is now staff\n", out)

	out, err = run(t, "--config", cfg, "staff", "revoke", "barista")
	require.NoError(t, err)
	assert.Equal(t, "barista revoked\n", out)

	_, err = run(t, "--config", cfg, "staff", "grant", "x", "--role", "owner")
	assert.ErrorContains(t, err, "invalid role")
}

func TestStaffToken(t *testing.T) {
	t.Setenv("COFFEE_AUTH_HMAC_SECRET", "0123456789abcdef0123456789abcdef")

	out, err := run(t, "staff", "token", "u1")
	require.NoError(t, err)
	assert.Regexp(t, `^[\w-]+\.[\w-]+\.[\w-]+\n$`, out)
}
