// Package cli implements the vigil command-line interface.
//
// Each Cobra command loads configuration, builds an engine over the
// provider client and hands off to the engine, the dashboard or the HTTP
// server:
//
//	vigil monitor             - Interactive dashboard
//	vigil serve               - HTTP API with Prometheus metrics
//	vigil scan <kind> [path]  - Run one scan and print its report
//	vigil status              - One-shot reading of every stream
//	vigil reports list|show   - Browse archived reports
//	vigil save                - Ask the provider to save a scan snapshot
//	vigil config init|set|show|path - Manage vigil.yaml
//	vigil version             - Build information
//
// # Output
//
// --json switches every command to the envelope in internal/output. Exit
// codes: 0 success, 1 error, 2 when --fail-on-danger sees a DANGER report.
package cli
