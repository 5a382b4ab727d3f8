package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type capture struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (c *capture) write(s string) {
	c.mu.Lock()
	c.buf.WriteString(s)
	c.mu.Unlock()
}

func (c *capture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func TestNewSpinner(t *testing.T) {
	s := NewSpinner("Scanning")
	assert.Equal(t, "Scanning", s.Label())
	assert.Equal(t, SpinnerPending, s.State())
}

func TestSpinnerStartStop(t *testing.T) {
	out := &capture{}
	s := NewSpinner("Scanning")
	s.SetOutput(out.write)

	s.Start()
	assert.Equal(t, SpinnerInProgress, s.State())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	// Stop leaves the state alone
	assert.Equal(t, SpinnerInProgress, s.State())
	assert.Contains(t, out.String(), "Scanning...")
}

func TestSpinnerFinish(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Spinner)
		state  SpinnerState
		symbol string
	}{
		{"success", func(s *Spinner) { s.Success("DANGER") }, SpinnerSuccess, SymbolSuccess},
		{"fail", func(s *Spinner) { s.Fail("provider unavailable") }, SpinnerFailed, SymbolFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &capture{}
			s := NewSpinner("Full scan")
			s.SetOutput(out.write)

			s.Start()
			time.Sleep(10 * time.Millisecond)
			tt.finish(s)

			assert.Equal(t, tt.state, s.State())
			got := out.String()
			assert.Contains(t, got, tt.symbol)
			assert.True(t, strings.HasSuffix(got, "\n"))
		})
	}
}

func TestSpinnerDoubleStartStop(t *testing.T) {
	s := NewSpinner("Test")
	s.SetOutput(func(string) {})

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	assert.Equal(t, SpinnerInProgress, s.State())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		want     string
	}{
		{0, "0.00s"},
		{50 * time.Millisecond, "0.05s"},
		{100 * time.Millisecond, "0.1s"},
		{1500 * time.Millisecond, "1.5s"},
		{10 * time.Second, "10.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDuration(tt.duration))
		})
	}
}
