package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerFrames is the animation used by dashboard spinners.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// SpinnerComponent is a Bubble Tea spinner with a label, shown while a
// scan kind is running. Idle components render nothing.
type SpinnerComponent struct {
	spinner   spinner.Model
	Label     string
	Active    bool
	StartTime time.Time
}

// NewSpinnerComponent creates an idle spinner component.
func NewSpinnerComponent(label string) SpinnerComponent {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)
	return SpinnerComponent{spinner: sp, Label: label}
}

// Update advances the animation while active.
func (s SpinnerComponent) Update(msg tea.Msg) (SpinnerComponent, tea.Cmd) {
	if !s.Active {
		return s, nil
	}
	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(tick)
		return s, cmd
	}
	return s, nil
}

// View renders "◐ label... 1.2s" while active.
func (s SpinnerComponent) View() string {
	if !s.Active {
		return ""
	}
	timing := lipgloss.NewStyle().Foreground(ColorMuted).Render(formatDuration(s.Elapsed()))
	return s.spinner.View() + " " + s.Label + "... " + timing
}

// Start marks the component active and returns the first tick.
func (s *SpinnerComponent) Start() tea.Cmd {
	if s.Active {
		return nil
	}
	s.Active = true
	s.StartTime = time.Now()
	return s.spinner.Tick
}

// Stop marks the component idle.
func (s *SpinnerComponent) Stop() {
	s.Active = false
}

// Elapsed returns the duration since the spinner started.
func (s SpinnerComponent) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}
