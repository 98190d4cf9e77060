package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := ParseArgs([]string{"-c", "", "-s", "secret", "-app-tokens", "app-1, app-2"}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, int64(10<<20), opts.QuotaBytes)
	assert.Equal(t, []string{"app-1", "app-2"}, opts.AppTokens)
	assert.Equal(t, "info", opts.LogLevel)
	assert.False(t, opts.TLSEnabled())
}

func TestParseArgs_ConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"address": "0.0.0.0:9000",
		"database_dsn": "postgres://file",
		"jwt_secret": "from-file",
		"quota_bytes": 2048,
		"app_tokens": ["file-app"]
	}`), 0o600))

	opts, err := ParseArgs([]string{"-c", path, "-d", "postgres://flag"}, envMap(map[string]string{
		"SERVER_ADDRESS": "127.0.0.1:7000",
	}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", opts.Port, "env wins")
	assert.Equal(t, "postgres://flag", opts.DatabaseDSN, "explicit flag wins over file")
	assert.Equal(t, "from-file", opts.JWTSecret)
	assert.Equal(t, int64(2048), opts.QuotaBytes)
	assert.Equal(t, []string{"file-app"}, opts.AppTokens)
}

func TestParseArgs_EnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alt.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"jwt_secret":"x","app_tokens":["a"]}`), 0o600))

	opts, err := ParseArgs(nil, envMap(map[string]string{"CONFIG": path, "QUOTA_BYTES": "0"}))
	require.NoError(t, err)
	assert.Equal(t, "x", opts.JWTSecret)
	assert.Equal(t, int64(0), opts.QuotaBytes)
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"no secret", []string{"-c", "", "-app-tokens", "a"}, nil, "jwt secret is required"},
		{"no app token", []string{"-c", "", "-s", "x"}, nil, "app token is required"},
		{"half tls", []string{"-c", "", "-s", "x", "-app-tokens", "a", "-tls-cert", "c.pem"}, nil, "set together"},
		{"bad quota env", []string{"-c", "", "-s", "x", "-app-tokens", "a"}, map[string]string{"QUOTA_BYTES": "lots"}, "invalid QUOTA_BYTES"},
		{"negative quota", []string{"-c", "", "-s", "x", "-app-tokens", "a", "-q", "-1"}, nil, "negative"},
		{"unknown flag", []string{"-nope"}, nil, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, envMap(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseArgs_BadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
	_, err := ParseArgs([]string{"-c", path}, envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error while parsing config file")
}

func TestLoadClient(t *testing.T) {
	t.Setenv("NOTES_APP_TOKEN", "app-1")
	t.Setenv("NOTES_REDIRECT_URI", "http://localhost:8765/callback")
	t.Setenv("NOTES_STATE_DIR", "/tmp/notes-state")
	t.Setenv("NOTES_STORE", "sqlite")

	c, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "https://api.syncvault.dev", c.ServerURL)
	assert.Equal(t, "warn", c.LogLevel)
	assert.Equal(t, 8, c.FetchLimit)
	assert.Equal(t, 30*time.Second, c.SaveTimeout)
	assert.Equal(t, "/tmp/notes-state/session.db", c.SessionPath())
	assert.Equal(t, "/tmp/notes-state/redirect", c.RedirectPath())
}

func TestLoadClient_Required(t *testing.T) {
	t.Setenv("NOTES_APP_TOKEN", "")
	require.NoError(t, os.Unsetenv("NOTES_APP_TOKEN"))
	t.Setenv("NOTES_REDIRECT_URI", "http://localhost:8765/callback")
	_, err := LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_TOKEN")
}

func TestLoadClient_BadStore(t *testing.T) {
	t.Setenv("NOTES_APP_TOKEN", "app-1")
	t.Setenv("NOTES_REDIRECT_URI", "http://localhost:8765/callback")
	t.Setenv("NOTES_STORE", "redis")
	_, err := LoadClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported NOTES_STORE")
}

func TestLoadClient_DefaultStateDir(t *testing.T) {
	t.Setenv("NOTES_APP_TOKEN", "app-1")
	t.Setenv("NOTES_REDIRECT_URI", "http://localhost:8765/callback")
	t.Setenv("NOTES_STATE_DIR", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	c, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/xdg/securenotes/session.json", c.SessionPath())
}
