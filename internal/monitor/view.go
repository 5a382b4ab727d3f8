package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/rileyhilliard/vigil/internal/view"
)

const (
	defaultWidth   = 100
	gaugeWidth     = 30
	sparkWidth     = 40
	maxTableRows   = 25
	headerLines    = 3 // title, tabs, divider
	minBodyHeight  = 3
	cmdColumnWidth = 48
)

// renderDashboard renders the complete dashboard view.
func (m Model) renderDashboard() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	if m.viewportReady {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderBody())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) contentWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) renderHeader() string {
	active := m.engine.ActiveView()
	title := ui.RenderHeader(ui.HeaderInfo{
		Version: m.version,
		Right:   active.Title() + "  " + ui.Muted("updated "+ui.FormatAge(m.lastUpdate)),
	}, m.contentWidth())
	title = strings.TrimSuffix(title, "\n")
	lines := strings.SplitN(title, "\n", 2)

	tabs := make([]string, len(view.All))
	for i, id := range view.All {
		label := fmt.Sprintf("%d %s", i+1, id.Title())
		if id == active {
			tabs[i] = TabActiveStyle.Render(label)
		} else {
			tabs[i] = TabStyle.Render(label)
		}
	}

	out := HeaderStyle.Render(lines[0]) + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
	if len(lines) > 1 {
		out += lines[1] + "\n"
	}
	return out
}

func (m Model) renderFooter() string {
	var parts []string
	for _, k := range scanKinds {
		if sp := m.spinners[k]; sp.Active {
			parts = append(parts, sp.View())
		}
	}
	if m.status != "" {
		style := StatusOKStyle
		if m.statusErr {
			style = StatusErrStyle
		}
		parts = append(parts, style.Render(m.status))
	}

	var b strings.Builder
	if len(parts) > 0 {
		b.WriteString(FooterStyle.Render(strings.Join(parts, "  ")))
		b.WriteString("\n")
	}
	b.WriteString(FooterStyle.Render(m.help.View(keys)))
	return b.String()
}

func (m Model) footerHeight() int {
	return lipgloss.Height(m.renderFooter())
}

func (m *Model) resizeViewport() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := max(m.height-headerLines-m.footerHeight()-1, minBodyHeight)
	if !m.viewportReady {
		m.viewport = viewport.New(m.width, h)
		m.viewport.YPosition = headerLines
		m.viewportReady = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.renderContent()
}

// renderContent refreshes the viewport with the active view's body.
func (m *Model) renderContent() {
	if !m.viewportReady {
		return
	}
	m.viewport.SetContent(m.renderBody())
}

func (m Model) renderBody() string {
	switch m.engine.ActiveView() {
	case view.CPUMemory:
		return m.renderCPUMemory()
	case view.Processes:
		return m.renderProcesses()
	case view.Network:
		return m.renderNetwork()
	case view.Traffic:
		return m.renderTraffic()
	case view.Cryptojacking:
		return m.renderScanReport(scan.Cryptojacking)
	case view.FileScanner:
		return m.renderFileScanner()
	default:
		return m.renderOverview()
	}
}

func (m Model) renderOverview() string {
	var b strings.Builder
	b.WriteString(m.renderGauges(false))
	b.WriteString("\n")
	b.WriteString(SectionHeader("Scans", "", m.contentWidth()))
	b.WriteString("\n")
	for _, k := range scanKinds {
		b.WriteString("  " + padLabel(scanLabel(k), 22) + m.jobSummary(k) + "\n")
	}
	return b.String()
}

func (m Model) renderCPUMemory() string {
	return m.renderGauges(true)
}

// renderGauges draws the cpu and memory lines; detail adds sparklines and
// memory totals.
func (m Model) renderGauges(detail bool) string {
	st := m.states[telemetry.CPUMemory]
	var b strings.Builder
	b.WriteString(SectionHeader("CPU / Memory", streamBadge(st), m.contentWidth()))
	b.WriteString("\n")

	sample, ok := latest[telemetry.CPUMemorySample](st)
	if !ok {
		b.WriteString("  " + waiting(st) + "\n")
		return b.String()
	}

	cpuLine := "  " + padLabel("CPU", 8) + Gauge(gaugeWidth, sample.CPUPercent, risk.CPUPercent) + " " + ValueStyle.Render(ui.FormatPercent(sample.CPUPercent))
	memLine := "  " + padLabel("Memory", 8) + Gauge(gaugeWidth, sample.MemoryPercent, risk.MemoryPercent) + " " + ValueStyle.Render(ui.FormatPercent(sample.MemoryPercent))
	b.WriteString(cpuLine + "\n")
	b.WriteString(memLine + "\n")
	if !detail {
		return b.String()
	}

	cpu, mem := historySeries(st)
	b.WriteString("\n")
	b.WriteString("  " + padLabel("CPU", 8) + ui.RenderSparkline(cpu, sparkWidth, risk.CPUPercent) + "\n")
	b.WriteString("  " + padLabel("Memory", 8) + ui.RenderSparkline(mem, sparkWidth, risk.MemoryPercent) + "\n")
	if sample.MemoryTotal > 0 {
		b.WriteString("\n  " + LabelStyle.Render(fmt.Sprintf("%s of %s in use",
			ui.FormatBytes(sample.MemoryUsed), ui.FormatBytes(sample.MemoryTotal))) + "\n")
	}
	return b.String()
}

func (m Model) renderProcesses() string {
	st := m.states[telemetry.Processes]
	var b strings.Builder
	list, ok := latest[telemetry.ProcessList](st)
	b.WriteString(SectionHeader("Processes", streamBadge(st), m.contentWidth()))
	b.WriteString("\n")
	if !ok {
		b.WriteString("  " + waiting(st) + "\n")
		return b.String()
	}

	procs := append(telemetry.ProcessList(nil), list...)
	sort.SliceStable(procs, func(i, j int) bool {
		if procs[i].Suspicious != procs[j].Suspicious {
			return procs[i].Suspicious
		}
		return procs[i].CPUPercent > procs[j].CPUPercent
	})
	if len(procs) > maxTableRows {
		procs = procs[:maxTableRows]
	}

	rows := make([]table.Row, len(procs))
	for i, p := range procs {
		rows[i] = table.Row{
			flag(p.Suspicious),
			fmt.Sprint(p.PID),
			p.Name,
			ui.FormatPercent(p.CPUPercent),
			ui.FormatPercent(p.MemoryPercent),
			truncate(p.Cmdline, cmdColumnWidth),
		}
	}
	cols := []ui.TableColumn{
		{Title: "", Width: 2},
		{Title: "PID", Width: 8},
		{Title: "Name", Width: 20},
		{Title: "CPU", Width: 7},
		{Title: "Mem", Width: 7},
		{Title: "Command", Width: cmdColumnWidth},
	}
	b.WriteString(ui.NewTable(cols, rows, 0).View())
	b.WriteString("\n  " + LabelStyle.Render(fmt.Sprintf("%d processes, %d suspicious", len(list), list.SuspiciousCount())) + "\n")
	return b.String()
}

func (m Model) renderNetwork() string {
	st := m.states[telemetry.Connections]
	var b strings.Builder
	list, ok := latest[telemetry.ConnectionList](st)
	b.WriteString(SectionHeader("Connections", streamBadge(st), m.contentWidth()))
	b.WriteString("\n")
	if !ok {
		b.WriteString("  " + waiting(st) + "\n")
		return b.String()
	}

	conns := append(telemetry.ConnectionList(nil), list...)
	sort.SliceStable(conns, func(i, j int) bool {
		return conns[i].Suspicious && !conns[j].Suspicious
	})
	if len(conns) > maxTableRows {
		conns = conns[:maxTableRows]
	}

	rows := make([]table.Row, len(conns))
	for i, c := range conns {
		rows[i] = table.Row{flag(c.Suspicious), fmt.Sprint(c.PID), c.LocalAddr, c.RemoteAddr, c.Status}
	}
	cols := []ui.TableColumn{
		{Title: "", Width: 2},
		{Title: "PID", Width: 8},
		{Title: "Local", Width: 24},
		{Title: "Remote", Width: 24},
		{Title: "Status", Width: 14},
	}
	b.WriteString(ui.NewTable(cols, rows, 0).View())
	b.WriteString("\n  " + LabelStyle.Render(fmt.Sprintf("%d connections, %d suspicious", len(list), list.SuspiciousCount())) + "\n")
	return b.String()
}

func (m Model) renderTraffic() string {
	st := m.states[telemetry.Traffic]
	var b strings.Builder
	b.WriteString(SectionHeader("Traffic", streamBadge(st), m.contentWidth()))
	b.WriteString("\n")
	sample, ok := latest[telemetry.TrafficSample](st)
	if !ok {
		b.WriteString("  " + waiting(st) + "\n")
		return b.String()
	}

	var sent, recv []float64
	for _, r := range st.History {
		if s, ok := r.Value.(telemetry.TrafficSample); ok {
			sent = append(sent, s.SentBytesPerSec)
			recv = append(recv, s.RecvBytesPerSec)
		}
	}

	// Rates carry no rule of their own; the sparklines use the default color.
	b.WriteString("  " + padLabel("Sent", 10) + padLabel(ui.FormatRate(sample.SentBytesPerSec), 14) + ui.RenderSparkline(sent, sparkWidth, "") + "\n")
	b.WriteString("  " + padLabel("Received", 10) + padLabel(ui.FormatRate(sample.RecvBytesPerSec), 14) + ui.RenderSparkline(recv, sparkWidth, "") + "\n")
	b.WriteString("\n  " + LabelStyle.Render(fmt.Sprintf("totals: %s sent, %s received",
		ui.FormatBytes(sample.TotalSent), ui.FormatBytes(sample.TotalRecv))) + "\n")

	anomaly := risk.ClassifyBool(risk.TrafficAnomaly, sample.Anomaly)
	label := "no anomaly"
	if sample.Anomaly {
		label = "anomaly detected"
	}
	b.WriteString("  " + ui.TierText(anomaly, ui.TierSymbol(anomaly)+" "+label) + "\n")
	return b.String()
}

func (m Model) renderScanReport(kind scan.Kind) string {
	var b strings.Builder
	job := m.jobs[kind]
	b.WriteString(SectionHeader(scanLabel(kind), m.jobSummary(kind), m.contentWidth()))
	b.WriteString("\n")

	if !job.HasReport() {
		b.WriteString("  " + LabelStyle.Render(fmt.Sprintf("No report yet. Press %s to run.", scanKey(kind))) + "\n")
		return b.String()
	}
	b.WriteString(renderReport(job.Report))
	return b.String()
}

func (m Model) renderFileScanner() string {
	var b strings.Builder
	if m.prompting {
		b.WriteString("  " + m.input.View() + "\n")
		b.WriteString("  " + LabelStyle.Render("enter to scan, esc to cancel") + "\n\n")
	}
	b.WriteString(m.renderScanReport(scan.File))
	return b.String()
}

func renderReport(r *report.Report) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %s  %s\n", ui.TierBadge(r.RiskLevel), r.Verdict))
	b.WriteString("  " + LabelStyle.Render(fmt.Sprintf("%d flags, generated %s", r.TotalFlags, ui.FormatAge(r.GeneratedAt))) + "\n")
	if len(r.DetectionMethods) > 0 {
		b.WriteString("  " + LabelStyle.Render("methods: "+strings.Join(r.DetectionMethods, ", ")) + "\n")
	}
	if f := r.FileFinding(); f != nil {
		b.WriteString(fmt.Sprintf("\n  %s  %s  entropy %.2f\n", f.Filename, f.SizeHuman, f.Entropy))
		b.WriteString("  " + LabelStyle.Render(f.Hash) + "\n")
		if len(f.MatchedKeywords) > 0 {
			b.WriteString("  keywords: " + strings.Join(f.MatchedKeywords, ", ") + "\n")
		}
		for _, note := range f.AnalysisNotes {
			b.WriteString("  - " + note + "\n")
		}
		return b.String()
	}
	b.WriteString("\n")
	b.WriteString(ui.RenderFindings(r.Findings))
	return b.String()
}

func (m Model) jobSummary(kind scan.Kind) string {
	job := m.jobs[kind]
	var s string
	switch job.State {
	case scan.StateRunning:
		s = lipgloss.NewStyle().Foreground(ui.ColorSecondary).Render("running")
	case scan.StateFailed:
		s = StatusErrStyle.Render("failed")
	case scan.StateSucceeded:
		s = StatusOKStyle.Render("done")
	default:
		s = LabelStyle.Render("idle")
	}
	if job.HasReport() {
		s += "  " + ui.TierBadge(job.Report.RiskLevel) + LabelStyle.Render(fmt.Sprintf("  %d flags", job.Report.TotalFlags))
	}
	return s
}

func scanKey(kind scan.Kind) string {
	switch kind {
	case scan.Full:
		return "f"
	case scan.Cryptojacking:
		return "c"
	default:
		return "/"
	}
}

// latest returns the stream's latest value as T.
func latest[T telemetry.Value](st poller.StreamState) (T, bool) {
	var zero T
	if st.Latest == nil {
		return zero, false
	}
	v, ok := st.Latest.Value.(T)
	return v, ok
}

func historySeries(st poller.StreamState) (cpu, mem []float64) {
	for _, r := range st.History {
		if s, ok := r.Value.(telemetry.CPUMemorySample); ok {
			cpu = append(cpu, s.CPUPercent)
			mem = append(mem, s.MemoryPercent)
		}
	}
	return cpu, mem
}

func streamBadge(st poller.StreamState) string {
	if st.Latest == nil {
		return LabelStyle.Render(string(st.Status))
	}
	return ui.TierBadge(st.Latest.Tier())
}

func waiting(st poller.StreamState) string {
	if st.LastError != "" {
		return StatusErrStyle.Render(st.LastError)
	}
	return LabelStyle.Render("waiting for first reading...")
}

func flag(suspicious bool) string {
	if suspicious {
		return ui.SymbolDanger
	}
	return ""
}

func padLabel(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
