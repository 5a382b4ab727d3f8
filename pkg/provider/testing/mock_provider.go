// Package testing provides an in-memory Provider for tests.
package testing

import (
	"context"
	"io"
	"sync"

	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

// Method names used as keys for Calls.
const (
	MethodCPUMemory     = "CPUMemory"
	MethodProcesses     = "Processes"
	MethodConnections   = "Connections"
	MethodTraffic       = "Traffic"
	MethodFullScan      = "FullScan"
	MethodCryptojacking = "CryptojackingCheck"
	MethodSaveScan      = "SaveScan"
	MethodScanFile      = "ScanFile"
)

// MockProvider returns canned values. Any *Func field that is set takes
// precedence over the canned value for that method.
type MockProvider struct {
	mu    sync.Mutex
	calls map[string]int

	CPUMemorySample telemetry.CPUMemorySample
	ProcessList     telemetry.ProcessList
	ConnectionList  telemetry.ConnectionList
	TrafficSample   telemetry.TrafficSample

	CPUMemoryFunc     func(ctx context.Context) (telemetry.CPUMemorySample, error)
	ProcessesFunc     func(ctx context.Context) (telemetry.ProcessList, error)
	ConnectionsFunc   func(ctx context.Context) (telemetry.ConnectionList, error)
	TrafficFunc       func(ctx context.Context) (telemetry.TrafficSample, error)
	FullScanFunc      func(ctx context.Context) (*provider.FullScanResult, error)
	CryptojackingFunc func(ctx context.Context) (*provider.CryptojackingResult, error)
	SaveScanFunc      func(ctx context.Context) (*provider.SaveResult, error)
	ScanFileFunc      func(ctx context.Context, filename string, content []byte) (*provider.FileScanResult, error)
}

var _ provider.Provider = (*MockProvider)(nil)

// NewMockProvider creates a mock with a healthy, quiet host.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		calls:           make(map[string]int),
		CPUMemorySample: telemetry.CPUMemorySample{CPUPercent: 12, MemoryPercent: 40, MemoryUsed: 4 << 30, MemoryTotal: 16 << 30},
		ProcessList: telemetry.ProcessList{
			{PID: 1, Name: "init", Cmdline: "/sbin/init", CPUPercent: 0.1, MemoryPercent: 0.1},
		},
		ConnectionList: telemetry.ConnectionList{
			{PID: 100, LocalAddr: "0.0.0.0:22", RemoteAddr: "N/A", Status: "LISTEN"},
		},
		TrafficSample: telemetry.TrafficSample{SentBytesPerSec: 1024, RecvBytesPerSec: 4096},
	}
}

// Calls returns how many times method was invoked.
func (m *MockProvider) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

func (m *MockProvider) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
}

func (m *MockProvider) CPUMemory(ctx context.Context) (telemetry.CPUMemorySample, error) {
	m.record(MethodCPUMemory)
	if m.CPUMemoryFunc != nil {
		return m.CPUMemoryFunc(ctx)
	}
	return m.CPUMemorySample, nil
}

func (m *MockProvider) Processes(ctx context.Context) (telemetry.ProcessList, error) {
	m.record(MethodProcesses)
	if m.ProcessesFunc != nil {
		return m.ProcessesFunc(ctx)
	}
	return m.ProcessList, nil
}

func (m *MockProvider) Connections(ctx context.Context) (telemetry.ConnectionList, error) {
	m.record(MethodConnections)
	if m.ConnectionsFunc != nil {
		return m.ConnectionsFunc(ctx)
	}
	return m.ConnectionList, nil
}

func (m *MockProvider) Traffic(ctx context.Context) (telemetry.TrafficSample, error) {
	m.record(MethodTraffic)
	if m.TrafficFunc != nil {
		return m.TrafficFunc(ctx)
	}
	return m.TrafficSample, nil
}

func (m *MockProvider) FullScan(ctx context.Context) (*provider.FullScanResult, error) {
	m.record(MethodFullScan)
	if m.FullScanFunc != nil {
		return m.FullScanFunc(ctx)
	}
	return &provider.FullScanResult{
		ScanTime:    "2024-03-01T10:00:00",
		CPUMemory:   m.CPUMemorySample,
		Processes:   m.ProcessList,
		Connections: m.ConnectionList,
		Traffic:     m.TrafficSample,
		Summary: provider.FullScanSummary{
			TotalProcesses:        len(m.ProcessList),
			SuspiciousProcesses:   m.ProcessList.SuspiciousCount(),
			ActiveConnections:     len(m.ConnectionList),
			SuspiciousConnections: m.ConnectionList.SuspiciousCount(),
			TrafficAnomaly:        m.TrafficSample.Anomaly,
		},
	}, nil
}

func (m *MockProvider) CryptojackingCheck(ctx context.Context) (*provider.CryptojackingResult, error) {
	m.record(MethodCryptojacking)
	if m.CryptojackingFunc != nil {
		return m.CryptojackingFunc(ctx)
	}
	return &provider.CryptojackingResult{
		Timestamp: "2024-03-01T10:00:00",
		Verdict:   "No cryptojacking activity detected",
		Summary:   provider.CryptojackingSummary{RiskLevel: "LOW"},
		DetectionMethods: []string{
			"Process name analysis",
			"CPU usage monitoring",
		},
	}, nil
}

func (m *MockProvider) SaveScan(ctx context.Context) (*provider.SaveResult, error) {
	m.record(MethodSaveScan)
	if m.SaveScanFunc != nil {
		return m.SaveScanFunc(ctx)
	}
	return &provider.SaveResult{
		Filename:  "scan_results_20240301_100000.json",
		Message:   "Scan results saved",
		Timestamp: "2024-03-01T10:00:00",
	}, nil
}

func (m *MockProvider) ScanFile(ctx context.Context, filename string, content io.Reader) (*provider.FileScanResult, error) {
	m.record(MethodScanFile)
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if m.ScanFileFunc != nil {
		return m.ScanFileFunc(ctx, filename, data)
	}
	return &provider.FileScanResult{
		Filename:  filename,
		SizeBytes: int64(len(data)),
		SHA256:    "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		Verdict:   "Clean",
		RiskLevel: "LOW",
		Analysis:  []string{"No significant threats detected"},
		Timestamp: "2024-03-01T10:00:00",
	}, nil
}
