package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/vigil/internal/util"
)

// Markdown renders a report for humans.
func Markdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s report\n\n", title(r.Kind)))
	sb.WriteString(fmt.Sprintf("- **Subject:** %s\n", r.Subject))
	sb.WriteString(fmt.Sprintf("- **Generated:** %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	source := "derived"
	if r.RiskAsserted {
		source = "provider"
	}
	sb.WriteString(fmt.Sprintf("- **Risk level:** %s (%s)\n", r.RiskLevel, source))
	sb.WriteString(fmt.Sprintf("- **Flags:** %d\n", r.TotalFlags))
	sb.WriteString(fmt.Sprintf("- **Verdict:** %s\n", r.Verdict))

	procs, conns := r.Counts()
	if procs > 0 {
		sb.WriteString("\n## Suspicious processes\n\n")
		sb.WriteString("| PID | Name | CPU % | Reason |\n|---|---|---|---|\n")
		for _, f := range r.Findings {
			if f.Process == nil {
				continue
			}
			p := f.Process
			sb.WriteString(fmt.Sprintf("| %d | %s | %.1f | %s |\n", p.PID, cell(p.Name), p.CPUPercent, cell(p.Reason)))
		}
	}
	if conns > 0 {
		sb.WriteString("\n## Suspicious connections\n\n")
		sb.WriteString("| Local | Remote | Status | Reason |\n|---|---|---|---|\n")
		for _, f := range r.Findings {
			if f.Connection == nil {
				continue
			}
			c := f.Connection
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.LocalAddr, c.RemoteAddr, c.Status, cell(c.Reason)))
		}
	}

	if file := r.FileFinding(); file != nil {
		sb.WriteString("\n## File analysis\n\n")
		sb.WriteString(fmt.Sprintf("- **File:** %s\n", file.Filename))
		size := file.SizeHuman
		if size == "" {
			size = humanize.IBytes(uint64(file.Size))
		}
		sb.WriteString(fmt.Sprintf("- **Size:** %s (%d bytes)\n", size, file.Size))
		sb.WriteString(fmt.Sprintf("- **SHA-256:** `%s`\n", file.Hash))
		sb.WriteString(fmt.Sprintf("- **Entropy:** %.2f\n", file.Entropy))
		sb.WriteString(fmt.Sprintf("- **Risk level:** %s\n", file.RiskLevel))
		sb.WriteString(fmt.Sprintf("- **Keywords:** %s\n", util.JoinOrNone(file.MatchedKeywords)))
		if len(file.AnalysisNotes) > 0 {
			sb.WriteString("\n### Notes\n\n")
			for _, n := range file.AnalysisNotes {
				sb.WriteString("- " + n + "\n")
			}
		}
	}

	if len(r.Summary) > 0 {
		sb.WriteString("\n## Summary\n\n")
		for _, k := range sortedKeys(r.Summary) {
			sb.WriteString(fmt.Sprintf("- %s: %d\n", k, r.Summary[k]))
		}
	}

	if len(r.DetectionMethods) > 0 {
		sb.WriteString("\n## Detection methods\n\n")
		for _, m := range r.DetectionMethods {
			sb.WriteString("- " + m + "\n")
		}
	}

	return sb.String()
}

func title(k Kind) string {
	switch k {
	case KindFull:
		return "Full scan"
	case KindCryptojacking:
		return "Cryptojacking"
	case KindFile:
		return "File scan"
	}
	return string(k)
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
