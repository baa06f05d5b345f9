package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME at a temp dir so no real user config leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvConfigPath, "")
	return home
}

func TestDefault_IsValid(t *testing.T) {
	isolate(t)
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.False(t, cfg.CascadePushOnly)
	assert.Equal(t, "planloom.db", filepath.Base(cfg.DBPath))
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().DBPath, cfg.DBPath)
}

func TestLoad_HomeConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".planloom")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yml := `
db: /tmp/plan.db
lock_ttl: 90s
cascade_push_only: true
audit:
  log: true
  s3:
    bucket: archive
    path_style: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/plan.db", cfg.DBPath)
	assert.Equal(t, 90*time.Second, cfg.LockTTL)
	assert.True(t, cfg.CascadePushOnly)
	assert.True(t, cfg.Audit.Log)
	assert.Equal(t, "archive", cfg.Audit.S3.Bucket)
	assert.True(t, cfg.Audit.S3.PathStyle)
	assert.Equal(t, 256, cfg.ChainCacheSize)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: /from/file.db\nactor: file-actor\n"), 0o644))
	t.Setenv(EnvConfigPath, path)
	t.Setenv("PLANLOOM_DB", "/from/env.db")
	t.Setenv("PLANLOOM_LOCK_TTL", "5s")
	t.Setenv("PLANLOOM_CHAIN_CACHE_SIZE", "0")
	t.Setenv("PLANLOOM_AUDIT_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/env.db", cfg.DBPath)
	assert.Equal(t, "file-actor", cfg.Actor)
	assert.Equal(t, 5*time.Second, cfg.LockTTL)
	assert.Equal(t, 0, cfg.ChainCacheSize)
	assert.Equal(t, "http://localhost:9000", cfg.Audit.S3.Endpoint)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	isolate(t)
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BadEnvValues(t *testing.T) {
	for _, tc := range []struct{ key, value string }{
		{"PLANLOOM_LOCK_TTL", "soon"},
		{"PLANLOOM_CASCADE_PUSH_ONLY", "maybe"},
		{"PLANLOOM_CHAIN_CACHE_SIZE", "many"},
		{"PLANLOOM_LOG_LEVEL", "chatty"},
	} {
		t.Run(tc.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DBPath = " "
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LockTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	lvl, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
