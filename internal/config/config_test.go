package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://127.0.0.1:5000", cfg.Provider.URL)
	assert.Equal(t, 4*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Provider.ScanTimeout)
	assert.Equal(t, StreamConfig{Interval: 5 * time.Second, Capacity: 10}, cfg.Stream(telemetry.CPUMemory))
	assert.Equal(t, StreamConfig{Interval: 5 * time.Second, Capacity: 20}, cfg.Stream(telemetry.Traffic))
	assert.Equal(t, StreamConfig{Interval: 8 * time.Second, Capacity: 10}, cfg.Stream(telemetry.Connections))
	assert.Equal(t, StreamConfig{Interval: 10 * time.Second, Capacity: 10}, cfg.Stream(telemetry.Processes))
	assert.Equal(t, "vigil.alerts", cfg.Alerts.Subject)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_PartialFileMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vigil.yaml", `
provider:
  url: http://10.0.0.5:5000
streams:
  traffic:
    interval: 7s
export:
  compress: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.5:5000", cfg.Provider.URL)
	assert.Equal(t, 4*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 7*time.Second, cfg.Stream(telemetry.Traffic).Interval)
	assert.Equal(t, 20, cfg.Stream(telemetry.Traffic).Capacity)
	assert.Equal(t, 10*time.Second, cfg.Stream(telemetry.Processes).Interval)
	assert.True(t, cfg.Export.Compress)
	assert.Equal(t, ".", cfg.Export.Dir)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "vigil.yaml", "provider:\n  url: http://10.0.0.5:5000\n")
	t.Setenv("VIGIL_PROVIDER_URL", "http://192.168.1.9:5000")
	t.Setenv("VIGIL_PROVIDER_TIMEOUT", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.1.9:5000", cfg.Provider.URL)
	assert.Equal(t, 2*time.Second, cfg.Provider.Timeout)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	bad := writeFile(t, dir, "bad.yaml", "provider: [unclosed\n")
	_, err = Load(bad)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestLoad_ExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "vigil.yaml", "export:\n  dir: ~/reports\narchive:\n  path: ~/vigil/archive.db\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "reports"), cfg.Export.Dir)
	assert.Equal(t, filepath.Join(home, "vigil", "archive.db"), cfg.Archive.Path)
}

func TestFind(t *testing.T) {
	t.Run("explicit missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.True(t, errors.IsCode(err, errors.ErrConfig))
	})

	t.Run("explicit present", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "custom.yaml", "version: 1\n")
		got, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("HOME", t.TempDir())
		writeFile(t, dir, ConfigFileName, "version: 1\n")
		chdir(t, dir)

		got, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(got))
	})

	t.Run("nothing found", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		chdir(t, t.TempDir())

		got, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestLoadOrDefault_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("VIGIL_SERVER_ADDR", "0.0.0.0:9090")

	cfg, path, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)
	assert.Equal(t, DefaultConfig().Provider, cfg.Provider)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}
