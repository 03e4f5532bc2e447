package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, 4, cfg.Pipeline.MaxConcurrency)
	assert.Equal(t, 3, cfg.Pipeline.DCPCheckpointGoals)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
logging:
  level: warn
paths:
  data_dir: /tmp/dp-file-data
`
	require.NoError(t, os.WriteFile(configFile, []byte(yaml), 0644))

	t.Setenv("DP_CONFIG_FILE", configFile)
	t.Setenv("DP_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	// Env wins where set, file wins elsewhere.
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/dp-file-data", cfg.Paths.DataDir)
}

func TestLoadRejectsInvalidLevel(t *testing.T) {
	t.Setenv("DP_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DP_LOGGING_LEVEL", "verbose")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewPathsLayout(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewPaths(PathsConfig{DataDir: dir, LogsDir: filepath.Join(dir, "logs")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "snapshots"), paths.SnapshotsDir)
	assert.Equal(t, filepath.Join(dir, "timeseries"), paths.TimeSeriesDir)
	assert.Equal(t, filepath.Join(dir, "snapshots", "2025-06-30"), paths.SnapshotDir("2025-06-30"))
	assert.Equal(t,
		filepath.Join(dir, "artifacts", "2025-06-30", "42.json"),
		paths.ArtifactPath("2025-06-30", "42"))

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.RawDir))
	assert.True(t, FileExists(paths.ReportsDir))
}
