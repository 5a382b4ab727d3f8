// Package provider is the boundary to the external metrics and detection
// service. The engine consumes only the Provider interface; Client speaks
// the service's HTTP API.
package provider

import (
	"context"
	"io"

	"github.com/rileyhilliard/vigil/internal/telemetry"
)

// Provider exposes periodic readings and on-demand scans.
// Every method must honor ctx cancellation and deadlines.
//
// Failures are returned as *errors.Error with code PROVIDER_UNAVAILABLE,
// carrying the provider's reason when it gave one.
type Provider interface {
	CPUMemory(ctx context.Context) (telemetry.CPUMemorySample, error)
	Processes(ctx context.Context) (telemetry.ProcessList, error)
	Connections(ctx context.Context) (telemetry.ConnectionList, error)
	Traffic(ctx context.Context) (telemetry.TrafficSample, error)

	FullScan(ctx context.Context) (*FullScanResult, error)
	CryptojackingCheck(ctx context.Context) (*CryptojackingResult, error)
	SaveScan(ctx context.Context) (*SaveResult, error)

	// ScanFile uploads content under filename for analysis.
	ScanFile(ctx context.Context, filename string, content io.Reader) (*FileScanResult, error)
}
