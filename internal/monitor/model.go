package monitor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/rileyhilliard/vigil/internal/view"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

// DefaultRefresh is how often the dashboard re-reads engine state.
const DefaultRefresh = time.Second

// saveTimeout bounds the snapshot save triggered from the dashboard.
const saveTimeout = 30 * time.Second

// Engine is what the dashboard needs from engine.Engine.
type Engine interface {
	Current(id telemetry.StreamID) (poller.StreamState, error)
	Invoke(kind scan.Kind, in *scan.FileInput) (<-chan scan.Job, error)
	Result(kind scan.Kind) (scan.Job, error)
	Export(kind scan.Kind) (string, error)
	Save(ctx context.Context) (*provider.SaveResult, error)
	Activate(id view.ID) error
	ActiveView() view.ID
	NextView(step int) view.ID
}

// Options configures the dashboard.
type Options struct {
	Version string
	Refresh time.Duration
	// Initial is the first view shown. Empty means Overview.
	Initial view.ID
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	engine  Engine
	version string
	refresh time.Duration

	states   map[telemetry.StreamID]poller.StreamState
	jobs     map[scan.Kind]scan.Job
	spinners map[scan.Kind]ui.SpinnerComponent

	input     textinput.Model
	prompting bool

	viewport      viewport.Model
	viewportReady bool
	help          help.Model

	width, height int
	lastUpdate    time.Time
	status        string
	statusErr     bool
	quitting      bool
}

type tickMsg time.Time

type scanDoneMsg struct{ job scan.Job }

type exportMsg struct {
	kind scan.Kind
	path string
	err  error
}

type saveMsg struct {
	res *provider.SaveResult
	err error
}

// NewModel builds a dashboard over e. The engine's active view is shown;
// Run activates the initial view before the program starts.
func NewModel(e Engine, opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}

	in := textinput.New()
	in.Placeholder = "path/to/file"
	in.Prompt = "file> "
	in.CharLimit = 4096

	spinners := make(map[scan.Kind]ui.SpinnerComponent, len(scanKinds))
	for _, k := range scanKinds {
		spinners[k] = ui.NewSpinnerComponent(scanLabel(k))
	}

	m := Model{
		engine:   e,
		version:  opts.Version,
		refresh:  opts.Refresh,
		states:   make(map[telemetry.StreamID]poller.StreamState),
		jobs:     make(map[scan.Kind]scan.Job),
		spinners: spinners,
		input:    in,
		help:     help.New(),
	}
	m.sync()
	return m
}

var scanKinds = []scan.Kind{scan.Full, scan.Cryptojacking, scan.File}

func scanLabel(k scan.Kind) string {
	switch k {
	case scan.Full:
		return "Full scan"
	case scan.Cryptojacking:
		return "Cryptojacking check"
	default:
		return "File scan"
	}
}

// Run starts the dashboard on the alternate screen and blocks until the
// user quits.
func Run(e Engine, opts Options) error {
	initial := opts.Initial
	if initial == "" {
		initial = view.Overview
	}
	if err := e.Activate(initial); err != nil {
		return err
	}

	p := tea.NewProgram(NewModel(e, opts), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "dashboard exited with an error")
	}
	return nil
}

// Init starts the refresh tick.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			m.renderContent()
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeViewport()

	case tickMsg:
		m.lastUpdate = time.Time(msg)
		m.sync()
		cmds = append(cmds, m.tickCmd())

	case scanDoneMsg:
		m.jobs[msg.job.Kind] = msg.job
		m.stopSpinner(msg.job.Kind)
		if msg.job.State == scan.StateFailed {
			m.setStatus(scanLabel(msg.job.Kind)+" failed: "+msg.job.Error, true)
		} else {
			m.setStatus(scanLabel(msg.job.Kind)+" finished: "+msg.job.Report.RiskLevel.String(), false)
		}

	case exportMsg:
		if msg.err != nil {
			m.setStatus("Export failed: "+errors.Reason(msg.err), true)
		} else {
			m.setStatus("Exported "+string(msg.kind)+" report to "+msg.path, false)
		}

	case saveMsg:
		if msg.err != nil {
			m.setStatus("Save failed: "+errors.Reason(msg.err), true)
		} else {
			m.setStatus("Saved scan snapshot "+msg.res.Filename, false)
		}

	case spinner.TickMsg:
		for k, sp := range m.spinners {
			var cmd tea.Cmd
			sp, cmd = sp.Update(msg)
			m.spinners[k] = sp
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	if m.viewportReady {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.renderContent()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return tea.Quit, true

	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeViewport()
		return nil, true

	case key.Matches(msg, keys.SelectView):
		idx := int(msg.String()[0] - '1')
		m.activate(view.All[idx])
		return nil, true

	case key.Matches(msg, keys.NextView):
		m.activate(m.engine.NextView(1))
		return nil, true

	case key.Matches(msg, keys.PrevView):
		m.activate(m.engine.NextView(-1))
		return nil, true

	case key.Matches(msg, keys.FullScan):
		return m.invoke(scan.Full, nil), true

	case key.Matches(msg, keys.CryptoScan):
		return m.invoke(scan.Cryptojacking, nil), true

	case key.Matches(msg, keys.FileScan):
		m.activate(view.FileScanner)
		m.prompting = true
		m.input.SetValue("")
		return m.input.Focus(), true

	case key.Matches(msg, keys.Export):
		return m.exportCmd(exportKind(m.engine.ActiveView())), true

	case key.Matches(msg, keys.Save):
		m.setStatus("Saving scan snapshot...", false)
		return m.saveCmd(), true
	}
	return nil, false
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Cancel):
		m.prompting = false
		m.input.Blur()
		m.renderContent()
		return m, nil

	case key.Matches(msg, keys.Submit):
		m.prompting = false
		m.input.Blur()
		cmd := m.scanFile(strings.TrimSpace(m.input.Value()))
		m.renderContent()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.renderContent()
	return m, cmd
}

// activate switches the engine to id. Failures surface in the status line
// and leave the previous view active.
func (m *Model) activate(id view.ID) {
	if err := m.engine.Activate(id); err != nil {
		m.setStatus(errors.Reason(err), true)
		return
	}
	m.status = ""
	m.viewport.GotoTop()
	m.sync()
}

func (m *Model) invoke(kind scan.Kind, in *scan.FileInput) tea.Cmd {
	ch, err := m.engine.Invoke(kind, in)
	if err != nil {
		m.setStatus(errors.Reason(err), true)
		return nil
	}
	m.setStatus(scanLabel(kind)+" started", false)

	sp := m.spinners[kind]
	start := sp.Start()
	m.spinners[kind] = sp

	wait := func() tea.Msg { return scanDoneMsg{job: <-ch} }
	return tea.Batch(start, wait)
}

func (m *Model) scanFile(path string) tea.Cmd {
	if path == "" {
		m.setStatus("No file given", true)
		return nil
	}
	path = config.ExpandTilde(path)
	content, err := os.ReadFile(path)
	if err != nil {
		m.setStatus("Cannot read "+path+": "+err.Error(), true)
		return nil
	}
	return m.invoke(scan.File, &scan.FileInput{Name: filepath.Base(path), Content: content})
}

func (m *Model) stopSpinner(kind scan.Kind) {
	sp := m.spinners[kind]
	sp.Stop()
	m.spinners[kind] = sp
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// sync copies stream states and scan jobs out of the engine.
func (m *Model) sync() {
	for _, id := range telemetry.Streams {
		if st, err := m.engine.Current(id); err == nil {
			m.states[id] = st
		}
	}
	for _, k := range scanKinds {
		if job, err := m.engine.Result(k); err == nil {
			m.jobs[k] = job
		}
	}
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) exportCmd(kind scan.Kind) tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		path, err := e.Export(kind)
		return exportMsg{kind: kind, path: path, err: err}
	}
}

func (m Model) saveCmd() tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		res, err := e.Save(ctx)
		return saveMsg{res: res, err: err}
	}
}

// exportKind picks the report exported from a view: scan views export
// their own kind, everything else exports the full scan.
func exportKind(id view.ID) scan.Kind {
	switch id {
	case view.Cryptojacking:
		return scan.Cryptojacking
	case view.FileScanner:
		return scan.File
	default:
		return scan.Full
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}
