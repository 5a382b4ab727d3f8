package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/risk"
)

// TierBadge renders a tier as a colored "● NORMAL" style label.
func TierBadge(t risk.Tier) string {
	style := lipgloss.NewStyle().Foreground(TierColor(t)).Bold(t == risk.Danger)
	return style.Render(TierSymbol(t) + " " + t.String())
}

// TierText colors arbitrary text with the tier's color.
func TierText(t risk.Tier, s string) string {
	return lipgloss.NewStyle().Foreground(TierColor(t)).Render(s)
}

// Muted renders secondary text.
func Muted(s string) string {
	return lipgloss.NewStyle().Foreground(ColorMuted).Render(s)
}
