// Package report normalizes provider scan outputs into one verdict shape
// and encodes reports for export.
package report

import (
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/risk"
)

// Kind identifies the scan that produced a report.
type Kind string

const (
	KindFull          Kind = "full"
	KindCryptojacking Kind = "cryptojacking"
	KindFile          Kind = "file"
)

// Kinds lists every scan kind.
var Kinds = []Kind{KindFull, KindCryptojacking, KindFile}

// Valid reports whether k is a known scan kind.
func (k Kind) Valid() bool {
	switch k {
	case KindFull, KindCryptojacking, KindFile:
		return true
	}
	return false
}

// Report is the normalized result of any scan.
type Report struct {
	Kind        Kind      `json:"kind"`
	Subject     string    `json:"subject"`
	GeneratedAt time.Time `json:"generated_at"`
	TotalFlags  int       `json:"total_flags"`
	RiskLevel   risk.Tier `json:"risk_level"`
	// RiskAsserted is true when RiskLevel came from the provider.
	RiskAsserted     bool           `json:"risk_asserted"`
	Verdict          string         `json:"verdict"`
	Findings         []Finding      `json:"findings"`
	Summary          map[string]int `json:"summary,omitempty"`
	DetectionMethods []string       `json:"detection_methods,omitempty"`
}

// FindingType discriminates the Finding variants.
type FindingType string

const (
	FindingProcess    FindingType = "process"
	FindingConnection FindingType = "connection"
	FindingFile       FindingType = "file"
)

// Finding is one flagged item. Exactly one of Process, Connection or File
// is set, matching Type.
type Finding struct {
	Type       FindingType        `json:"type"`
	Tier       risk.Tier          `json:"tier"`
	Process    *ProcessFinding    `json:"process,omitempty"`
	Connection *ConnectionFinding `json:"connection,omitempty"`
	File       *FileFinding       `json:"file,omitempty"`
}

// ProcessFinding describes a flagged process.
type ProcessFinding struct {
	PID        int     `json:"pid"`
	Name       string  `json:"name"`
	Cmdline    string  `json:"cmdline"`
	CPUPercent float64 `json:"cpu_percent"`
	Reason     string  `json:"reason"`
}

// ConnectionFinding describes a flagged network connection.
type ConnectionFinding struct {
	PID        int    `json:"pid,omitempty"`
	LocalAddr  string `json:"local_addr"`
	RemoteAddr string `json:"remote_addr"`
	Status     string `json:"status"`
	Reason     string `json:"reason"`
}

// FileFinding describes an analyzed file. RiskLevel is computed for the
// file itself, independent of any report-level aggregation.
type FileFinding struct {
	Filename           string     `json:"filename"`
	Size               int64      `json:"size"`
	SizeHuman          string     `json:"size_human"`
	Entropy            float64    `json:"entropy"`
	Hash               string     `json:"hash"`
	RiskLevel          risk.Tier  `json:"risk_level"`
	Verdict            string     `json:"verdict"`
	FilenameSuspicious bool       `json:"filename_suspicious"`
	MatchedKeywords    KeywordSet `json:"matched_keywords"`
	AnalysisNotes      []string   `json:"analysis_notes"`
}

// KeywordSet is a sorted, de-duplicated set of lower-case keywords.
type KeywordSet []string

// NewKeywordSet builds a set from arbitrary keywords.
func NewKeywordSet(words ...string) KeywordSet {
	seen := make(map[string]struct{}, len(words))
	out := make(KeywordSet, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Has reports whether the set contains w.
func (s KeywordSet) Has(w string) bool {
	w = strings.ToLower(w)
	i := sort.SearchStrings(s, w)
	return i < len(s) && s[i] == w
}

// Counts returns the number of process and connection findings.
func (r *Report) Counts() (processes, connections int) {
	for _, f := range r.Findings {
		switch f.Type {
		case FindingProcess:
			processes++
		case FindingConnection:
			connections++
		}
	}
	return processes, connections
}

// FileFinding returns the file finding of a file report, or nil.
func (r *Report) FileFinding() *FileFinding {
	for _, f := range r.Findings {
		if f.Type == FindingFile {
			return f.File
		}
	}
	return nil
}
