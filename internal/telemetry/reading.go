// Package telemetry defines the readings produced by periodic streams and
// the bounded ring used to retain their history.
package telemetry

import (
	"time"

	"github.com/rileyhilliard/vigil/internal/risk"
)

// StreamID identifies a periodically sampled telemetry source.
type StreamID string

const (
	CPUMemory   StreamID = "cpu-memory"
	Processes   StreamID = "processes"
	Connections StreamID = "connections"
	Traffic     StreamID = "traffic"
)

// Streams lists every stream in display order.
var Streams = []StreamID{CPUMemory, Processes, Connections, Traffic}

// Valid reports whether id names a known stream.
func (id StreamID) Valid() bool {
	for _, s := range Streams {
		if s == id {
			return true
		}
	}
	return false
}

// Value is the stream-specific payload of a Reading. The concrete type is
// determined by the stream: CPUMemorySample, TrafficSample, ProcessList or
// ConnectionList.
type Value interface {
	// Indicators classifies the value into one or more risk indicators.
	Indicators() []Indicator
}

// Reading is one successful fetch of a stream. Readings are never mutated
// after construction; slices inside Value must be treated as read-only.
type Reading struct {
	Stream    StreamID  `json:"stream"`
	Timestamp time.Time `json:"timestamp"`
	Value     Value     `json:"value"`
}

// Indicator is one classified metric of a reading.
type Indicator struct {
	Metric risk.MetricKind `json:"metric"`
	Value  float64         `json:"value"`
	Tier   risk.Tier       `json:"tier"`
}

// Tier returns the highest tier across the reading's indicators.
func (r Reading) Tier() risk.Tier {
	if r.Value == nil {
		return risk.Normal
	}
	var tiers []risk.Tier
	for _, ind := range r.Value.Indicators() {
		tiers = append(tiers, ind.Tier)
	}
	return risk.Max(tiers...)
}

// CPUMemorySample is the value of the cpu-memory stream.
type CPUMemorySample struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    uint64  `json:"memory_used"`
	MemoryTotal   uint64  `json:"memory_total"`
}

func (s CPUMemorySample) Indicators() []Indicator {
	return []Indicator{
		indicator(risk.CPUPercent, s.CPUPercent),
		indicator(risk.MemoryPercent, s.MemoryPercent),
	}
}

// TrafficSample is the value of the traffic stream.
type TrafficSample struct {
	SentBytesPerSec float64 `json:"sent_bytes_per_sec"`
	RecvBytesPerSec float64 `json:"recv_bytes_per_sec"`
	TotalSent       uint64  `json:"total_sent"`
	TotalRecv       uint64  `json:"total_recv"`
	Anomaly         bool    `json:"anomaly"`
}

func (s TrafficSample) Indicators() []Indicator {
	v := 0.0
	if s.Anomaly {
		v = 1
	}
	return []Indicator{indicator(risk.TrafficAnomaly, v)}
}

// Process is one row of the process table.
type Process struct {
	PID           int     `json:"pid"`
	Name          string  `json:"name"`
	Cmdline       string  `json:"cmdline"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	CreateTime    string  `json:"create_time"`
	Suspicious    bool    `json:"suspicious"`
}

// ProcessList is the value of the processes stream.
type ProcessList []Process

// SuspiciousCount returns the number of processes flagged suspicious.
func (l ProcessList) SuspiciousCount() int {
	n := 0
	for _, p := range l {
		if p.Suspicious {
			n++
		}
	}
	return n
}

func (l ProcessList) Indicators() []Indicator {
	return []Indicator{indicator(risk.SuspiciousCount, float64(l.SuspiciousCount()))}
}

// Connection is one row of the network connection table.
type Connection struct {
	PID        int    `json:"pid"`
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	Status     string `json:"status"`
	Suspicious bool   `json:"suspicious"`
}

// ConnectionList is the value of the connections stream.
type ConnectionList []Connection

// SuspiciousCount returns the number of connections flagged suspicious.
func (l ConnectionList) SuspiciousCount() int {
	n := 0
	for _, c := range l {
		if c.Suspicious {
			n++
		}
	}
	return n
}

func (l ConnectionList) Indicators() []Indicator {
	return []Indicator{indicator(risk.SuspiciousCount, float64(l.SuspiciousCount()))}
}

func indicator(kind risk.MetricKind, v float64) Indicator {
	return Indicator{Metric: kind, Value: v, Tier: risk.Classify(kind, v)}
}
