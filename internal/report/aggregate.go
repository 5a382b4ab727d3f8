package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/util"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

// Summary keys.
const (
	SumTotalProcesses       = "total_processes"
	SumActiveConnections    = "active_connections"
	SumTrafficAnomaly       = "traffic_anomaly"
	SumProcessesFlagged     = "processes_flagged"
	SumConnectionsFlagged   = "connections_flagged"
	SumHighRiskIndicators   = "high_risk_indicators"
	SumMediumRiskIndicators = "medium_risk_indicators"
)

// providerTimeLayouts are the timestamp shapes the provider emits.
var providerTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Aggregator turns provider scan payloads into Reports.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an aggregator using the wall clock.
func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// SetClock overrides the clock used when the provider sends no timestamp.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

func (a *Aggregator) timestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range providerTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return a.now().UTC()
}

// flaggedTier is the tier of a single suspicious process or connection.
var flaggedTier = risk.ClassifyCount(risk.SuspiciousCount, 1)

// FromFullScan builds a report from a full scan. Risk is derived from
// the findings since the provider asserts none.
func (a *Aggregator) FromFullScan(res *provider.FullScanResult) *Report {
	r := &Report{
		Kind:        KindFull,
		Subject:     "full-scan",
		GeneratedAt: a.timestamp(res.ScanTime),
		Findings:    []Finding{},
		Summary: map[string]int{
			SumTotalProcesses:    res.Summary.TotalProcesses,
			SumActiveConnections: res.Summary.ActiveConnections,
			SumTrafficAnomaly:    boolInt(res.Summary.TrafficAnomaly || res.Traffic.Anomaly),
		},
	}

	for _, p := range res.Processes {
		if !p.Suspicious {
			continue
		}
		r.Findings = append(r.Findings, Finding{
			Type: FindingProcess,
			Tier: flaggedTier,
			Process: &ProcessFinding{
				PID:        p.PID,
				Name:       p.Name,
				Cmdline:    p.Cmdline,
				CPUPercent: p.CPUPercent,
				Reason:     processReason(p),
			},
		})
	}
	for _, c := range res.Connections {
		if !c.Suspicious {
			continue
		}
		r.Findings = append(r.Findings, Finding{
			Type: FindingConnection,
			Tier: flaggedTier,
			Connection: &ConnectionFinding{
				PID:        c.PID,
				LocalAddr:  c.LocalAddr,
				RemoteAddr: c.RemoteAddr,
				Status:     c.Status,
				Reason:     "Flagged by provider",
			},
		})
	}

	r.TotalFlags = len(r.Findings)
	r.RiskLevel = maxTier(r.Findings)

	procs, conns := r.Counts()
	if procs+conns == 0 {
		r.Verdict = "No suspicious activity detected"
	} else {
		r.Verdict = fmt.Sprintf("Found %d suspicious %s and %d suspicious %s",
			procs, util.Pluralize(procs, "process", "processes"),
			conns, util.Pluralize(conns, "connection", "connections"))
	}
	return r
}

// FromCryptojacking builds a report from a cryptojacking sweep. The
// provider's risk level is trusted when present.
func (a *Aggregator) FromCryptojacking(res *provider.CryptojackingResult) *Report {
	r := &Report{
		Kind:             KindCryptojacking,
		Subject:          "cryptojacking",
		GeneratedAt:      a.timestamp(res.Timestamp),
		Verdict:          res.Verdict,
		Findings:         []Finding{},
		DetectionMethods: append([]string(nil), res.DetectionMethods...),
		Summary: map[string]int{
			SumProcessesFlagged:     res.Summary.ProcessesFlagged,
			SumConnectionsFlagged:   res.Summary.ConnectionsFlagged,
			SumHighRiskIndicators:   res.Summary.HighRiskIndicators,
			SumMediumRiskIndicators: res.Summary.MediumRiskIndicators,
		},
	}

	for _, p := range res.SuspiciousProcesses {
		r.Findings = append(r.Findings, Finding{
			Type: FindingProcess,
			Tier: flaggedTier,
			Process: &ProcessFinding{
				PID:        p.PID,
				Name:       p.Name,
				Cmdline:    p.Cmdline,
				CPUPercent: p.CPUPercent,
				Reason:     p.Reason,
			},
		})
	}
	for _, c := range res.SuspiciousConnections {
		r.Findings = append(r.Findings, Finding{
			Type: FindingConnection,
			Tier: flaggedTier,
			Connection: &ConnectionFinding{
				PID:        c.PID,
				LocalAddr:  c.LocalAddr,
				RemoteAddr: c.RemoteAddr,
				Status:     c.Status,
				Reason:     c.Reason,
			},
		})
	}

	r.TotalFlags = len(r.Findings)
	if tier, ok := risk.ParseTier(res.Summary.RiskLevel); ok {
		r.RiskLevel = tier
		r.RiskAsserted = true
	} else {
		r.RiskLevel = maxTier(r.Findings)
	}
	if r.Verdict == "" {
		if r.TotalFlags == 0 {
			r.Verdict = "No cryptojacking activity detected"
		} else {
			r.Verdict = "Potential cryptojacking activity detected"
		}
	}
	return r
}

// highEntropy is the bits-per-byte above which file content counts as an
// indicator of packing or encryption.
const highEntropy = 7.5

// FromFileScan builds a report carrying exactly one file finding.
func (a *Aggregator) FromFileScan(res *provider.FileScanResult) *Report {
	keywords := NewKeywordSet(res.KeywordsMatched...)

	tier, asserted := risk.ParseTier(res.RiskLevel)
	if !asserted {
		indicators := len(keywords)
		if res.FilenameSuspicious {
			indicators++
		}
		if res.Entropy > highEntropy {
			indicators++
		}
		tier = risk.ClassifyCount(risk.SuspiciousCount, indicators)
	}

	notes := append([]string{}, res.Analysis...)
	file := &FileFinding{
		Filename:           res.Filename,
		Size:               res.SizeBytes,
		SizeHuman:          res.SizeHuman,
		Entropy:            res.Entropy,
		Hash:               res.SHA256,
		RiskLevel:          tier,
		Verdict:            res.Verdict,
		FilenameSuspicious: res.FilenameSuspicious,
		MatchedKeywords:    keywords,
		AnalysisNotes:      notes,
	}

	r := &Report{
		Kind:         KindFile,
		Subject:      res.Filename,
		GeneratedAt:  a.timestamp(res.Timestamp),
		RiskLevel:    tier,
		RiskAsserted: asserted,
		Verdict:      res.Verdict,
		Findings:     []Finding{{Type: FindingFile, Tier: tier, File: file}},
	}
	if tier > risk.Normal {
		r.TotalFlags = 1
	}
	if r.Verdict == "" {
		r.Verdict = "Clean"
		if tier > risk.Normal {
			r.Verdict = "Suspicious"
		}
	}
	return r
}

// processReason describes why a process from a full scan stands out,
// falling back to the provider's flag when no metric explains it.
func processReason(p telemetry.Process) string {
	var parts []string
	if risk.Classify(risk.CPUPercent, p.CPUPercent) > risk.Normal {
		parts = append(parts, fmt.Sprintf("High CPU usage: %.1f%%", p.CPUPercent))
	}
	if risk.Classify(risk.MemoryPercent, p.MemoryPercent) > risk.Normal {
		parts = append(parts, fmt.Sprintf("High memory usage: %.1f%%", p.MemoryPercent))
	}
	if len(parts) == 0 {
		return "Flagged by provider"
	}
	return strings.Join(parts, "; ")
}

func maxTier(findings []Finding) risk.Tier {
	tiers := make([]risk.Tier, len(findings))
	for i, f := range findings {
		tiers[i] = f.Tier
	}
	return risk.Max(tiers...)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
