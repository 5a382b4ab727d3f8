package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/stretchr/testify/assert"
)

func TestNewTable(t *testing.T) {
	columns := []TableColumn{
		{Title: "PID", Width: 8},
		{Title: "Name", Width: 20},
	}
	rows := []table.Row{
		{"42", "xmrig"},
		{"7", "sshd"},
	}

	view := NewTable(columns, rows, 0).View()
	assert.Contains(t, view, "PID")
	assert.Contains(t, view, "Name")
	assert.Contains(t, view, "xmrig")
	assert.Contains(t, view, "sshd")
}

func TestRenderSimpleTable(t *testing.T) {
	columns := []TableColumn{{Title: "Kind", Width: 15}, {Title: "Risk", Width: 10}}

	assert.Empty(t, RenderSimpleTable(columns, nil))

	out := RenderSimpleTable(columns, [][]string{{"full", "DANGER"}})
	assert.Contains(t, out, "Kind")
	assert.Contains(t, out, "full")
	assert.Contains(t, out, "DANGER")
}

func TestRenderStreamTable(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	assert.Equal(t, "No streams configured", RenderStreamTable(nil))

	out := RenderStreamTable([]StreamRow{
		{Stream: "cpu-memory", Running: true, Tier: risk.Warning, Value: "cpu 65.0%", Updated: "now"},
		{Stream: "traffic", Tier: risk.Normal, Error: "provider unavailable"},
	})

	assert.Contains(t, out, "STREAM")
	assert.Contains(t, out, "cpu-memory")
	assert.Contains(t, out, "polling")
	assert.Contains(t, out, "WARNING")
	assert.Contains(t, out, "cpu 65.0%")
	assert.Contains(t, out, "stopped")
	assert.Contains(t, out, "provider unavailable")
}

func TestRenderFindings(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	assert.Contains(t, RenderFindings(nil), "No findings")

	out := RenderFindings([]report.Finding{
		{Type: report.FindingProcess, Tier: risk.Danger, Process: &report.ProcessFinding{PID: 42, Name: "xmrig", CPUPercent: 97, Reason: "known miner"}},
		{Type: report.FindingConnection, Tier: risk.Danger, Connection: &report.ConnectionFinding{LocalAddr: "10.0.0.2:5555", RemoteAddr: "1.2.3.4:3333", Status: "ESTABLISHED"}},
		{Type: report.FindingProcess, Tier: risk.Danger, Process: &report.ProcessFinding{PID: 43, Name: "minerd"}},
	})

	assert.Contains(t, out, "Processes (2)")
	assert.Contains(t, out, "Connections (1)")
	assert.Contains(t, out, "xmrig (pid 42, 97.0% cpu)")
	assert.Contains(t, out, "known miner")
	assert.Contains(t, out, "10.0.0.2:5555 -> 1.2.3.4:3333 ESTABLISHED")
	// processes stay grouped ahead of connections
	assert.Less(t, strings.Index(out, "minerd"), strings.Index(out, "Connections"))
}

func TestTierBadge(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	assert.Equal(t, SymbolComplete+" NORMAL", TierBadge(risk.Normal))
	assert.Equal(t, SymbolWarning+" WARNING", TierBadge(risk.Warning))
	assert.Equal(t, SymbolDanger+" DANGER", TierBadge(risk.Danger))
}

func TestTierColor(t *testing.T) {
	assert.Equal(t, ColorSuccess, TierColor(risk.Normal))
	assert.Equal(t, ColorWarning, TierColor(risk.Warning))
	assert.Equal(t, ColorError, TierColor(risk.Danger))
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"foo", 5, "foo  "},
		{"foobar", 6, "foobar"},
		{"foobarbaz", 3, "foobarbaz"},
		{"", 2, "  "},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, padRight(tt.input, tt.width))
		})
	}
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "1.5 kB", FormatBytes(1500))
	assert.Equal(t, "2.0 MB/s", FormatRate(2_000_000))
	assert.Equal(t, "0 B/s", FormatRate(-3))
	assert.Equal(t, "65.0%", FormatPercent(65))
	assert.Equal(t, "never", FormatAge(time.Time{}))
}
