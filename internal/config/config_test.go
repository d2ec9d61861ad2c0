package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Second, cfg.Simulation.LatencyBudget)
	assert.Equal(t, 64, cfg.Events.Buffer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.NotEmpty(t, cfg.DB.Path)
}

func TestLoad_FileThenEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := `
db:
  path: /tmp/port.db
cache:
  ttl: 10m
log:
  level: debug
  format: json
tracing:
  enabled: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "portsim.yaml"), []byte(yaml), 0o644))
	t.Setenv("PORTSIM_LOG_LEVEL", "warn")
	t.Setenv("PORTSIM_LATENCY_BUDGET", "750ms")

	cfg, err := Load(Options{SearchPaths: []string{dir}})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/port.db", cfg.DB.Path)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "warn", cfg.Log.Level, "env wins over file")
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Simulation.LatencyBudget)
}

func TestLoad_DerivedEnvName(t *testing.T) {
	t.Setenv("PORTSIM_DB_PATH", ":memory:")
	t.Setenv("PORTSIM_METRICS_ADDR", ":9464")

	cfg, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.DB.Path)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("PORTSIM_CACHE_TTL", "0s")

	_, err := Load(Options{SearchPaths: []string{t.TempDir()}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
}
