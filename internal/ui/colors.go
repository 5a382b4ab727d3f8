package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/risk"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
	ColorAccent    lipgloss.Color = "5" // Magenta
)

// TierColor maps a risk tier to its display color.
func TierColor(t risk.Tier) lipgloss.Color {
	switch t {
	case risk.Danger:
		return ColorError
	case risk.Warning:
		return ColorWarning
	default:
		return ColorSuccess
	}
}
