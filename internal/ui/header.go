package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string
	Tagline string
	// Right is drawn after the version, e.g. the active view.
	Right string
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the "vigil vX" title line with an optional tagline
// and a divider sized to width (HeaderWidth when width <= 0).
func RenderHeader(info HeaderInfo, width int) string {
	if width <= 0 {
		width = HeaderWidth
	}
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorInfo)
	dividerStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var out strings.Builder
	out.WriteString(titleStyle.Render("vigil"))
	if info.Version != "" {
		out.WriteString(" ")
		out.WriteString(versionStyle.Render(info.Version))
	}
	if info.Right != "" {
		out.WriteString("  ")
		out.WriteString(lipgloss.NewStyle().Bold(true).Render(info.Right))
	}
	out.WriteString("\n")
	if info.Tagline != "" {
		out.WriteString(lipgloss.NewStyle().Foreground(ColorSecondary).Render(info.Tagline))
		out.WriteString("\n")
	}
	out.WriteString(dividerStyle.Render(strings.Repeat("━", width)))
	out.WriteString("\n")
	return out.String()
}
