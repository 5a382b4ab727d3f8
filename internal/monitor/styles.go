package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/ui"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Padding(0, 1)

	TabStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Padding(0, 1)

	TabActiveStyle = lipgloss.NewStyle().
			Foreground(ui.ColorAccent).
			Bold(true).
			Underline(true).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true)

	StatusOKStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSuccess)

	StatusErrStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError)
)

// Gauge renders a ▰▱ bar for a percentage, colored by the tier the value
// classifies to under kind.
func Gauge(width int, percent float64, kind risk.MetricKind) string {
	if width < 1 {
		width = 1
	}
	clamped := max(0, min(percent, 100))
	filled := int(clamped / 100.0 * float64(width))

	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", width-filled)
	return lipgloss.NewStyle().Foreground(ui.TierColor(risk.Classify(kind, percent))).Render(bar)
}

// SectionHeader renders "╭─ Title ───── value ╮" padded to width.
func SectionHeader(title, value string, width int) string {
	width = max(width, 10)
	left := 3 + lipgloss.Width(title) + 1
	right := 1 + lipgloss.Width(value) + 2
	fill := max(width-left-right, 1)

	border := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	titleStyle := lipgloss.NewStyle().Foreground(ui.ColorAccent).Bold(true)

	return border.Render("╭─ ") +
		titleStyle.Render(title) +
		border.Render(" "+strings.Repeat("─", fill)+" ") +
		value +
		border.Render(" ╮")
}
