package cli

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "1.2.3", want: "v1.2.3"},
		{in: "v1.2.3", want: "v1.2.3"},
		{in: "dev", want: "dev"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.in))
		})
	}
}

func withVersion(t *testing.T) {
	origV, origC, origD := version, commit, date
	origShort, origMachine := versionShort, machineMode
	SetVersionInfo("1.2.3", "abc1234", "2025-01-08T12:00:00Z")
	t.Cleanup(func() {
		SetVersionInfo(origV, origC, origD)
		versionShort, machineMode = origShort, origMachine
	})
}

func TestVersionOutput(t *testing.T) {
	withVersion(t)
	cmd, out := testCmd()

	require.NoError(t, versionCmd.RunE(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "vigil v1.2.3", lines[0])
	assert.Equal(t, "commit: abc1234", lines[1])
	assert.Equal(t, "built: 2025-01-08T12:00:00Z", lines[2])
	assert.Equal(t, "go: "+runtime.Version(), lines[3])
	assert.Equal(t, "1.2.3", GetVersion())
}

func TestVersionShort(t *testing.T) {
	withVersion(t)
	versionShort = true
	cmd, out := testCmd()

	require.NoError(t, versionCmd.RunE(cmd, nil))
	assert.Equal(t, "1.2.3\n", out.String())
}

func TestVersionJSON(t *testing.T) {
	withVersion(t)
	machineMode = true
	cmd, out := testCmd()

	require.NoError(t, versionCmd.RunE(cmd, nil))

	var info versionInfo
	decodeEnvelope(t, out.Bytes(), &info)
	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc1234", info.Commit)
	assert.Equal(t, runtime.GOOS, info.OS)
}
