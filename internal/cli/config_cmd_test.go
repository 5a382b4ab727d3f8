package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfigPath(t *testing.T, path string) {
	t.Helper()
	origCfg, origForce, origMachine := cfgFile, configInitForce, machineMode
	cfgFile = path
	t.Cleanup(func() {
		cfgFile, configInitForce, machineMode = origCfg, origForce, origMachine
	})
}

func TestConfigInit_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vigil.yaml")
	withConfigPath(t, path)
	cmd, out := testCmd()

	require.NoError(t, configInitCommand(cmd))

	assert.Contains(t, out.String(), path)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Provider.URL, cfg.Provider.URL)
}

func TestConfigInit_ExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vigil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))
	withConfigPath(t, path)
	// JSON mode never prompts.
	machineMode = true
	cmd, _ := testCmd()

	err := configInitCommand(cmd)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	configInitForce = true
	require.NoError(t, configInitCommand(cmd))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "provider:")
}

func TestConfigSet(t *testing.T) {
	env := newTestEnv(t)
	cmd, out := testCmd()

	require.NoError(t, configSetCommand(cmd, "streams.traffic.interval", "2s"))
	assert.Contains(t, out.String(), "streams.traffic.interval = 2s")

	cfg, err := config.Load(env.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Streams["traffic"].Interval)
}

func TestConfigSet_InvalidValueRollsBack(t *testing.T) {
	env := newTestEnv(t)
	before, err := os.ReadFile(env.cfgPath)
	require.NoError(t, err)
	cmd, _ := testCmd()

	err = configSetCommand(cmd, "provider.url", "not a url")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))

	after, err := os.ReadFile(env.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestConfigSet_NoFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	withConfigPath(t, "")
	cmd, _ := testCmd()

	err = configSetCommand(cmd, "provider.url", "http://localhost:5000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vigil config init")
}
