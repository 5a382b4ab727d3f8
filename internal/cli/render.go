package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/rileyhilliard/vigil/internal/util"
)

// writeReport prints r in the given format.
func writeReport(w io.Writer, r *report.Report, format string) error {
	switch format {
	case FormatJSON:
		if machineMode {
			return writeJSON(w, r)
		}
		data, err := report.Serialize(r)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatMarkdown:
		_, err := io.WriteString(w, report.Markdown(r))
		return err
	default:
		_, err := io.WriteString(w, renderReportText(r))
		return err
	}
}

func renderReportText(r *report.Report) string {
	var b strings.Builder
	source := "derived"
	if r.RiskAsserted {
		source = "provider"
	}

	fmt.Fprintf(&b, "%s  %s\n", ui.TierBadge(r.RiskLevel), r.Verdict)
	fmt.Fprintf(&b, "%s\n", ui.Muted(fmt.Sprintf("%s report for %s, %d flags, risk %s, generated %s",
		r.Kind, r.Subject, r.TotalFlags, source, r.GeneratedAt.Format("2006-01-02 15:04:05"))))
	if len(r.DetectionMethods) > 0 {
		fmt.Fprintf(&b, "%s\n", ui.Muted("methods: "+strings.Join(r.DetectionMethods, ", ")))
	}
	if len(r.Summary) > 0 {
		keys := make([]string, 0, len(r.Summary))
		for k := range r.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%d", k, r.Summary[k])
		}
		fmt.Fprintf(&b, "%s\n", ui.Muted("summary: "+strings.Join(parts, " ")))
	}
	b.WriteString("\n")

	if f := r.FileFinding(); f != nil {
		fmt.Fprintf(&b, "%s  %s  entropy %.2f\n", f.Filename, f.SizeHuman, f.Entropy)
		fmt.Fprintf(&b, "sha256 %s\n", f.Hash)
		if f.FilenameSuspicious {
			b.WriteString(ui.TierText(f.RiskLevel, "suspicious filename") + "\n")
		}
		fmt.Fprintf(&b, "keywords: %s\n", util.JoinOrDefault(f.MatchedKeywords, "none"))
		for _, note := range f.AnalysisNotes {
			fmt.Fprintf(&b, "  - %s\n", note)
		}
		return b.String()
	}

	b.WriteString(ui.RenderFindings(r.Findings))
	return b.String()
}
