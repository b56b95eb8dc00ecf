package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcrud.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "", cfg.Server.APIPrefix)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "mcrud", cfg.Store.Database)
	assert.Equal(t, "schema.yaml", cfg.Schema.File)
	assert.Equal(t, 8, cfg.Integrity.MaxConcurrency)
	assert.Equal(t, 10*time.Second, cfg.Integrity.ActionTimeout)
	assert.True(t, cfg.Routes.Enabled)
	assert.Equal(t, "none", cfg.Cache.Backend)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.Server.Profiling)
	assert.Equal(t, "none", cfg.RateLimit.Backend)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "localhost:3000", cfg.Address())
}

func TestLoadWithConfigFile(t *testing.T) {
	path := writeConfig(t, `
debug: true
server:
  port: 8080
  host: 0.0.0.0
  api_prefix: /api
store:
  driver: mongo
  uri: mongodb://db:27017
integrity:
  action_timeout: 2s
routes:
  enabled: false
cache:
  backend: redis
  ttl: 30s
ratelimit:
  backend: memory
  requests: 5
  window: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, "mongo", cfg.Store.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.Store.URI)
	assert.Equal(t, 2*time.Second, cfg.Integrity.ActionTimeout)
	assert.False(t, cfg.Routes.Enabled)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MCRUD_SERVER_PORT", "9090")
	t.Setenv("MCRUD_AUTH_JWT_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "prefix without leading slash", content: "server:\n  api_prefix: api\n", wantErr: "must start with '/'"},
		{name: "prefix with trailing slash", content: "server:\n  api_prefix: /api/\n", wantErr: "must not end with '/'"},
		{name: "unknown store driver", content: "store:\n  driver: postgres\n", wantErr: "store.driver"},
		{name: "unknown cache backend", content: "cache:\n  backend: disk\n", wantErr: "cache.backend"},
		{name: "negative concurrency", content: "integrity:\n  max_concurrency: -1\n", wantErr: "max_concurrency"},
		{name: "unknown rate limit backend", content: "ratelimit:\n  backend: disk\n", wantErr: "ratelimit.backend"},
		{name: "empty rate limit budget", content: "ratelimit:\n  backend: memory\n  requests: 0\n", wantErr: "ratelimit.requests"},
		{name: "port out of range", content: "server:\n  port: 70000\n", wantErr: "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
