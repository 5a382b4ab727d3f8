package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with the default styling. height is the
// number of visible rows; zero sizes the table to fit every row.
func NewTable(columns []TableColumn, rows []table.Row, height int) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	if height <= 0 {
		height = len(rows) + 1 // +1 for header
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	s.Selected = s.Selected.
		Foreground(ColorPrimary).
		Background(ColorMuted).
		Bold(false)
	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table string for CLI output.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows, 0).View()
}

// StreamRow is one line of the stream status table.
type StreamRow struct {
	Stream  string
	Running bool
	Tier    risk.Tier
	Value   string // short rendering of the latest reading
	Updated string
	Error   string
}

// RenderStreamTable renders stream status for `vigil status`.
func RenderStreamTable(rows []StreamRow) string {
	if len(rows) == 0 {
		return "No streams configured"
	}

	errorStyle := lipgloss.NewStyle().Foreground(ColorError)
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	var out strings.Builder
	out.WriteString(headerStyle.Render("  STREAM        STATE     TIER        LATEST                  UPDATED") + "\n")
	for _, row := range rows {
		state := Muted("stopped")
		if row.Running {
			state = lipgloss.NewStyle().Foreground(ColorSecondary).Render("polling")
		}
		latest := row.Value
		if row.Error != "" {
			latest = errorStyle.Render(row.Error)
		}
		out.WriteString("  " +
			padRight(row.Stream, 14) +
			padRight(state, 10) +
			padRight(TierBadge(row.Tier), 12) +
			padRight(latest, 24) +
			Muted(row.Updated) + "\n")
	}
	return out.String()
}

// RenderFindings renders a report's findings grouped by finding type,
// in the order each type first appears.
func RenderFindings(findings []report.Finding) string {
	if len(findings) == 0 {
		return Muted("No findings") + "\n"
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	groups := make(map[report.FindingType][]report.Finding)
	var order []report.FindingType
	for _, f := range findings {
		if _, seen := groups[f.Type]; !seen {
			order = append(order, f.Type)
		}
		groups[f.Type] = append(groups[f.Type], f)
	}

	var out strings.Builder
	for _, typ := range order {
		out.WriteString(headerStyle.Render(groupTitle(typ, len(groups[typ]))) + "\n")
		for _, f := range groups[typ] {
			subject, reason := describeFinding(f)
			out.WriteString("  " + TierText(f.Tier, TierSymbol(f.Tier)) + " " + subject + "\n")
			if reason != "" {
				out.WriteString("    " + Muted(reason) + "\n")
			}
		}
		out.WriteString("\n")
	}
	return out.String()
}

func groupTitle(t report.FindingType, n int) string {
	switch t {
	case report.FindingProcess:
		return fmt.Sprintf("Processes (%d)", n)
	case report.FindingConnection:
		return fmt.Sprintf("Connections (%d)", n)
	case report.FindingFile:
		return "File"
	default:
		return string(t)
	}
}

func describeFinding(f report.Finding) (subject, reason string) {
	switch {
	case f.Process != nil:
		p := f.Process
		return fmt.Sprintf("%s (pid %d, %s cpu)", p.Name, p.PID, FormatPercent(p.CPUPercent)), p.Reason
	case f.Connection != nil:
		c := f.Connection
		return fmt.Sprintf("%s -> %s %s", c.LocalAddr, c.RemoteAddr, c.Status), c.Reason
	case f.File != nil:
		ff := f.File
		return fmt.Sprintf("%s (%s, entropy %.2f)", ff.Filename, ff.SizeHuman, ff.Entropy), ff.Verdict
	default:
		return string(f.Type), ""
	}
}

// padRight pads a string to the specified visible width.
func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}
