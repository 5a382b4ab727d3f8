// Package ui provides terminal rendering helpers shared by the vigil CLI
// and the monitor dashboard.
//
// # Components
//
//	Spinner          - Animated status line for a scan the CLI is waiting on
//	SpinnerComponent - Bubble Tea spinner for embedding in the dashboard
//	Sparkline        - Mini graph of a metric's history, colored by tier
//	Tables           - Stream, finding and archive tables
//	TierBadge        - Colored NORMAL/WARNING/DANGER label
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - NORMAL tier, successful operations
//	ColorWarning   (yellow) - WARNING tier
//	ColorError     (red)    - DANGER tier, failures
//	ColorInfo      (cyan)   - Informational text
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
package ui
