package provider

import "github.com/rileyhilliard/vigil/internal/telemetry"

// FullScanResult is a combined snapshot of every stream plus summary counts.
type FullScanResult struct {
	ScanTime    string
	CPUMemory   telemetry.CPUMemorySample
	Processes   telemetry.ProcessList
	Connections telemetry.ConnectionList
	Traffic     telemetry.TrafficSample
	Summary     FullScanSummary
}

// FullScanSummary holds the provider's counts for a full scan.
type FullScanSummary struct {
	TotalProcesses        int  `json:"total_processes"`
	SuspiciousProcesses   int  `json:"suspicious_processes"`
	ActiveConnections     int  `json:"active_connections"`
	SuspiciousConnections int  `json:"suspicious_connections"`
	TrafficAnomaly        bool `json:"traffic_anomaly"`
}

// FlaggedProcess is a process the provider flagged, with its reason.
type FlaggedProcess struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	Cmdline       string  `json:"cmdline"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	CreateTime    string  `json:"create_time"`
	Reason        string  `json:"reason"`
}

// FlaggedConnection is a connection the provider flagged, with its reason.
type FlaggedConnection struct {
	PID        int    `json:"pid"`
	LocalAddr  string `json:"laddr"`
	RemoteAddr string `json:"raddr"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
}

// CryptojackingSummary is the provider's own tally. RiskLevel is the
// provider-asserted level (HIGH, MEDIUM or LOW).
type CryptojackingSummary struct {
	ProcessesFlagged     int    `json:"processes_flagged"`
	ConnectionsFlagged   int    `json:"connections_flagged"`
	HighRiskIndicators   int    `json:"high_risk_indicators"`
	MediumRiskIndicators int    `json:"medium_risk_indicators"`
	RiskLevel            string `json:"risk_level"`
}

// CryptojackingResult is the outcome of a cryptojacking sweep.
type CryptojackingResult struct {
	Timestamp             string               `json:"timestamp"`
	SuspiciousProcesses   []FlaggedProcess     `json:"suspicious_processes"`
	SuspiciousConnections []FlaggedConnection  `json:"suspicious_connections"`
	TotalFlags            int                  `json:"total_flags"`
	Verdict               string               `json:"verdict"`
	Summary               CryptojackingSummary `json:"scan_summary"`
	DetectionMethods      []string             `json:"detection_methods"`
}

// SaveResult acknowledges a provider-side snapshot save.
type SaveResult struct {
	Filename  string `json:"filename"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// FileScanResult is the provider's analysis of one uploaded file.
type FileScanResult struct {
	Filename           string   `json:"filename"`
	SizeBytes          int64    `json:"filesize_bytes"`
	SizeHuman          string   `json:"filesize_human"`
	SHA256             string   `json:"sha256"`
	Entropy            float64  `json:"entropy"`
	KeywordsMatched    []string `json:"keywords_matched"`
	FilenameSuspicious bool     `json:"filename_suspicious"`
	Verdict            string   `json:"verdict"`
	RiskLevel          string   `json:"risk_level"`
	Analysis           []string `json:"analysis"`
	Timestamp          string   `json:"timestamp"`
}
