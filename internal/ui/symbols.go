package ui

import "github.com/rileyhilliard/vigil/internal/risk"

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Operation completed
	SymbolFail     = "✗" // Operation failed
	SymbolPending  = "○" // Not started / idle
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Done
	SymbolWarning  = "▲"
	SymbolDanger   = "◆"
)

// TierSymbol returns the marker drawn next to a tier.
func TierSymbol(t risk.Tier) string {
	switch t {
	case risk.Danger:
		return SymbolDanger
	case risk.Warning:
		return SymbolWarning
	default:
		return SymbolComplete
	}
}
