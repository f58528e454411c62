package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 4242, cfg.Server.Port)
	assert.Equal(t, filepath.Join(".ralph", "ralphd.db"), cfg.Database.Path)
	assert.Equal(t, 2, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 10, cfg.Loop.MaxIterations)
	assert.Equal(t, 0, cfg.Loop.DelaySeconds)
	assert.Equal(t, 8000, cfg.Loop.FailureContextMaxChars)
	assert.True(t, cfg.Loop.GitCheckpoint)
	assert.Equal(t, 5*time.Minute, cfg.Loop.AgentTimeout)
	assert.Equal(t, time.Duration(0), cfg.Loop.ValidateTimeout)
	assert.Equal(t, "claude", cfg.Agent.Default)
}

func TestServerAddr(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "127.0.0.1:4242", cfg.Server.Addr())

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: 10.0.0.5
  port: 9000
database:
  path: /var/lib/ralphd/state.db
queue:
  max_concurrent: 4
loop:
  max_iterations: 25
  delay_seconds: 3
  git_checkpoint: false
  agent_timeout: 30m
agent:
  default: codex
  model: gpt-5
  additional_flags:
    - "--no-telemetry"
automations:
  file: automations.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/var/lib/ralphd/state.db", cfg.Database.Path)
	assert.Equal(t, 4, cfg.Queue.MaxConcurrent)
	assert.Equal(t, 25, cfg.Loop.MaxIterations)
	assert.Equal(t, 3, cfg.Loop.DelaySeconds)
	assert.False(t, cfg.Loop.GitCheckpoint)
	assert.Equal(t, 30*time.Minute, cfg.Loop.AgentTimeout)
	assert.Equal(t, "codex", cfg.Agent.Default)
	assert.Equal(t, "gpt-5", cfg.Agent.Model)
	assert.Equal(t, []string{"--no-telemetry"}, cfg.Agent.AdditionalFlags)
	assert.Equal(t, "automations.yaml", cfg.Automations.File)
}

func TestLoadFromPathKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 5000\n"), 0o644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// Overridden key takes, everything else stays at the defaults.
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 2, cfg.Queue.MaxConcurrent)
	assert.True(t, cfg.Loop.GitCheckpoint)
}

func TestLoadFromPathMissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 5000\n"), 0o644))

	t.Setenv("RALPHD_PORT", "7777")
	t.Setenv("RALPHD_HOST", "192.168.1.2")
	t.Setenv("RALPHD_DB_PATH", "/tmp/override.db")
	t.Setenv("RALPHD_MAX_CONCURRENT", "8")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	// Environment beats the file.
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "192.168.1.2", cfg.Server.Host)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, 8, cfg.Queue.MaxConcurrent)
}

func TestDatabasePathExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: ${RALPHD_STATE_DIR}/ralphd.db\n"), 0o644))

	t.Setenv("RALPHD_STATE_DIR", "/data/ralph")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/ralph/ralphd.db", cfg.Database.Path)
}

func TestUserConfigPathHonorsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/ralphd/config.yaml", GetUserConfigPath())
}
