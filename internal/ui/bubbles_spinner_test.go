package ui

import (
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
)

func TestSpinnerComponent_IdleRendersNothing(t *testing.T) {
	sp := NewSpinnerComponent("Full scan")
	assert.False(t, sp.Active)
	assert.Empty(t, sp.View())
	assert.Equal(t, time.Duration(0), sp.Elapsed())

	_, cmd := sp.Update(spinner.TickMsg{})
	assert.Nil(t, cmd)
}

func TestSpinnerComponent_StartStop(t *testing.T) {
	sp := NewSpinnerComponent("Full scan")

	cmd := sp.Start()
	assert.NotNil(t, cmd)
	assert.True(t, sp.Active)
	assert.Contains(t, sp.View(), "Full scan...")

	// already running
	assert.Nil(t, sp.Start())

	sp.Stop()
	assert.Empty(t, sp.View())
}
