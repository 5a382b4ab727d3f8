package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/risk"
)

// Block characters for 8 vertical levels, lowest first.
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the most recent width values of data as a one-line
// graph. Levels are scaled to the min/max of the visible window and the
// whole line takes the color of the tier the last value classifies to
// under kind.
func RenderSparkline(data []float64, width int, kind risk.MetricKind) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)
	levels := len(sparklineBlocks)
	span := hi - lo
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - lo) / span * float64(levels-1))
			level = max(0, min(level, levels-1))
		}
		sb.WriteRune(sparklineBlocks[level])
	}

	last := data[len(data)-1]
	style := lipgloss.NewStyle().Foreground(TierColor(risk.Classify(kind, last)))
	return style.Render(sb.String())
}
