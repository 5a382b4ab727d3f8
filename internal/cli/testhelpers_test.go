package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/pkg/provider"
	providertest "github.com/rileyhilliard/vigil/pkg/provider/testing"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// testEnv is a config file in a temp dir plus a mock provider wired in
// through newProvider.
type testEnv struct {
	dir      string
	cfgPath  string
	provider *providertest.MockProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, config.WriteDefault(path, false))
	require.NoError(t, config.SetValue(path, "export.dir", filepath.Join(dir, "exports")))

	mock := providertest.NewMockProvider()

	origCfg, origProvider := cfgFile, newProvider
	origMachine := machineMode
	origFormat, origExport, origFail := scanFormatFlag, scanExportFlag, scanFailOnDangerFlag
	cfgFile = path
	newProvider = func(*config.Config, logger.Logger) (provider.Provider, error) {
		return mock, nil
	}
	t.Cleanup(func() {
		cfgFile, newProvider = origCfg, origProvider
		machineMode = origMachine
		scanFormatFlag, scanExportFlag, scanFailOnDangerFlag = origFormat, origExport, origFail
	})

	return &testEnv{dir: dir, cfgPath: path, provider: mock}
}

func (e *testEnv) set(t *testing.T, key, value string) {
	t.Helper()
	require.NoError(t, config.SetValue(e.cfgPath, key, value))
}

// testCmd returns a bare command whose stdout is captured.
func testCmd() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd, &out
}

// decodeEnvelope parses a --json success envelope into data.
func decodeEnvelope(t *testing.T, raw []byte, data interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &env))
	require.True(t, env.Success, string(raw))
	require.NoError(t, json.Unmarshal(env.Data, data))
}
