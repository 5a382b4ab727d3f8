// Package monitor implements the interactive terminal dashboard.
//
// The dashboard is a Bubble Tea program over the engine. It never polls the
// provider itself: switching views asks the engine to activate the view,
// which starts the streams the view needs and stops the rest, and a 1s
// tick re-reads stream state and scan jobs for rendering.
//
// # Views
//
//	1 Overview       - CPU/memory gauges plus the last result of each scan
//	2 CPU/Memory     - Gauges and history sparklines
//	3 Processes      - Process table, suspicious rows flagged
//	4 Network        - Connection table, suspicious rows flagged
//	5 Traffic        - Throughput, totals and anomaly state
//	6 Cryptojacking  - Last cryptojacking report
//	7 File Scanner   - Path prompt and last file report
//
// # Keyboard Shortcuts
//
//	1-7, Tab     - Switch view
//	f / c        - Run full / cryptojacking scan
//	/            - Scan a file (enter a path)
//	e            - Export the report for the current view
//	s            - Save a provider-side scan snapshot
//	↑/↓, PgUp/Dn - Scroll
//	?            - Toggle help
//	q, Ctrl+C    - Quit
package monitor
