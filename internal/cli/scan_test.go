package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/pkg/provider"
	providertest "github.com/rileyhilliard/vigil/pkg/provider/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCommand_FullTable(t *testing.T) {
	env := newTestEnv(t)
	cmd, out := testCmd()

	require.NoError(t, scanCommand(cmd, "full", ""))

	assert.Contains(t, out.String(), "NORMAL")
	assert.Contains(t, out.String(), "No suspicious activity detected")
	assert.Equal(t, 1, env.provider.Calls(providertest.MethodFullScan))
}

func TestScanCommand_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{format: FormatMarkdown, want: "# "},
		{format: FormatJSON, want: `"kind": "cryptojacking"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			newTestEnv(t)
			scanFormatFlag = tt.format
			cmd, out := testCmd()

			require.NoError(t, scanCommand(cmd, "cryptojacking", ""))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestScanCommand_JSONEnvelope(t *testing.T) {
	newTestEnv(t)
	machineMode = true
	cmd, out := testCmd()

	require.NoError(t, scanCommand(cmd, "full", ""))

	var r report.Report
	decodeEnvelope(t, out.Bytes(), &r)
	assert.Equal(t, report.KindFull, r.Kind)
	assert.Equal(t, risk.Normal, r.RiskLevel)
}

func TestScanCommand_FailOnDanger(t *testing.T) {
	env := newTestEnv(t)
	env.provider.ProcessList = telemetry.ProcessList{
		{PID: 4242, Name: "xmrig", Cmdline: "./xmrig -o pool", CPUPercent: 97, Suspicious: true},
	}
	scanFailOnDangerFlag = true
	cmd, out := testCmd()

	err := scanCommand(cmd, "full", "")

	code, ok := errors.GetExitCode(err)
	require.True(t, ok, "expected exit error, got %v", err)
	assert.Equal(t, ExitDanger, code)
	assert.Contains(t, out.String(), "xmrig")
}

func TestScanCommand_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.FullScanFunc = func(context.Context) (*provider.FullScanResult, error) {
		return nil, errors.New(errors.ErrProviderUnavailable, "connection refused", "")
	}
	cmd, _ := testCmd()

	err := scanCommand(cmd, "full", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "Full scan failed")
}

func TestScanCommand_File(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "payload.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))
	cmd, out := testCmd()

	require.NoError(t, scanCommand(cmd, "file", path))

	assert.Equal(t, 1, env.provider.Calls(providertest.MethodScanFile))
	assert.Contains(t, out.String(), "payload.bin")
}

func TestScanCommand_InputErrors(t *testing.T) {
	tests := []struct {
		name string
		kind string
		path string
	}{
		{name: "unknown kind", kind: "deep"},
		{name: "path on full scan", kind: "full", path: "/tmp/x"},
		{name: "missing file", kind: "file", path: "/does/not/exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			cmd, _ := testCmd()

			err := scanCommand(cmd, tt.kind, tt.path)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrInvalidInput), err.Error())
			assert.Zero(t, env.provider.TotalCalls())
		})
	}
}

func TestScanCommand_FileWithoutPathNonInteractive(t *testing.T) {
	newTestEnv(t)
	machineMode = true
	cmd, _ := testCmd()

	err := scanCommand(cmd, "file", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidInput))
}

func TestScanCommand_Export(t *testing.T) {
	env := newTestEnv(t)
	scanExportFlag = true
	cmd, _ := testCmd()

	require.NoError(t, scanCommand(cmd, "full", ""))

	entries, err := os.ReadDir(filepath.Join(env.dir, "exports"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "full")
}

func TestSaveCommand(t *testing.T) {
	env := newTestEnv(t)
	cmd, out := testCmd()

	require.NoError(t, saveCommand(cmd))

	assert.Equal(t, 1, env.provider.Calls(providertest.MethodSaveScan))
	assert.Contains(t, out.String(), "scan_results_20240301_100000.json")
}

func TestRenderReportText_File(t *testing.T) {
	r := &report.Report{
		Kind:      report.KindFile,
		Subject:   "invoice.exe",
		RiskLevel: risk.Danger,
		Verdict:   "Suspicious file",
		Findings: []report.Finding{{
			Type: report.FindingFile,
			Tier: risk.Danger,
			File: &report.FileFinding{
				Filename:           "invoice.exe",
				SizeHuman:          "12 kB",
				Entropy:            7.5,
				Hash:               "abc123",
				FilenameSuspicious: true,
				MatchedKeywords:    report.KeywordSet{"powershell"},
				AnalysisNotes:      []string{"High entropy"},
			},
		}},
	}

	out := renderReportText(r)
	assert.Contains(t, out, "DANGER")
	assert.Contains(t, out, "sha256 abc123")
	assert.Contains(t, out, "suspicious filename")
	assert.Contains(t, out, "keywords: powershell")
	assert.Contains(t, out, "High entropy")
}

func TestRenderReportText_FileWithoutKeywords(t *testing.T) {
	r := &report.Report{
		Kind:      report.KindFile,
		Subject:   "notes.txt",
		RiskLevel: risk.Normal,
		Verdict:   "Clean",
		Findings: []report.Finding{{
			Type: report.FindingFile,
			Tier: risk.Normal,
			File: &report.FileFinding{Filename: "notes.txt", SizeHuman: "10 B", Hash: "cafe"},
		}},
	}

	out := renderReportText(r)
	assert.Contains(t, out, "keywords: none")
	assert.NotContains(t, out, "suspicious filename")
}
