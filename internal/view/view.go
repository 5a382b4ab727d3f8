// Package view maps dashboard views to the telemetry streams they need and
// keeps only those streams polling.
package view

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/util"
)

// ID names a view.
type ID string

const (
	Overview      ID = "overview"
	CPUMemory     ID = "cpu-memory"
	Processes     ID = "processes"
	Network       ID = "network"
	Traffic       ID = "traffic"
	Cryptojacking ID = "cryptojacking"
	FileScanner   ID = "file-scanner"
)

// All lists every view in display order.
var All = []ID{Overview, CPUMemory, Processes, Network, Traffic, Cryptojacking, FileScanner}

var requirements = map[ID][]telemetry.StreamID{
	Overview:      {telemetry.CPUMemory},
	CPUMemory:     {telemetry.CPUMemory},
	Processes:     {telemetry.Processes},
	Network:       {telemetry.Connections},
	Traffic:       {telemetry.Traffic},
	Cryptojacking: nil,
	FileScanner:   nil,
}

// Valid reports whether id is a known view.
func (id ID) Valid() bool {
	_, ok := requirements[id]
	return ok
}

// Title is the label shown in tab bars.
func (id ID) Title() string {
	switch id {
	case CPUMemory:
		return "CPU/Memory"
	case FileScanner:
		return "File Scanner"
	}
	s := string(id)
	return strings.ToUpper(s[:1]) + s[1:]
}

// Requirements returns the streams a view polls. Scan views need none.
func Requirements(id ID) []telemetry.StreamID {
	return append([]telemetry.StreamID(nil), requirements[id]...)
}

// Parse validates a user-supplied view id.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if id.Valid() {
		return id, nil
	}

	names := make([]string, len(All))
	for i, v := range All {
		names[i] = string(v)
	}
	suggestion := "Valid views: " + strings.Join(names, ", ")
	if similar := util.SuggestSimilar(string(id), names, 1); len(similar) > 0 {
		suggestion = fmt.Sprintf("Did you mean %q?", similar[0])
	}
	return "", errors.New(errors.ErrInvalidInput, fmt.Sprintf("Unknown view: %s", s), suggestion)
}

// StreamController starts and stops stream polling. *poller.Poller
// satisfies it.
type StreamController interface {
	Start(id telemetry.StreamID) error
	Stop(id telemetry.StreamID) error
}

// Dispatcher holds the active view.
type Dispatcher struct {
	streams StreamController
	log     logger.Logger

	mu     sync.Mutex
	active ID
}

// NewDispatcher creates a dispatcher with no active view. Nothing polls
// until the first Activate.
func NewDispatcher(streams StreamController, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Dispatcher{streams: streams, log: log}
}

// Activate switches to id, stopping streams the new view does not need
// before starting the ones it does. Re-activating the current view is a
// no-op apart from restarting anything that was stopped externally.
func (d *Dispatcher) Activate(id ID) error {
	if !id.Valid() {
		_, err := Parse(string(id))
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	need := make(map[telemetry.StreamID]bool)
	for _, s := range requirements[id] {
		need[s] = true
	}

	for _, s := range telemetry.Streams {
		if need[s] {
			continue
		}
		if err := d.streams.Stop(s); err != nil {
			d.log.Warn("stop %s: %s", s, errors.Reason(err))
		}
	}
	for _, s := range requirements[id] {
		if err := d.streams.Start(s); err != nil {
			return err
		}
	}

	if d.active != id {
		d.log.Debug("view %s -> %s", d.active, id)
	}
	d.active = id
	return nil
}

// Active returns the active view, or "" before the first Activate.
func (d *Dispatcher) Active() ID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Next returns the view after the active one, wrapping around. With no
// active view it returns the first.
func (d *Dispatcher) Next(step int) ID {
	cur := d.Active()
	idx := -1
	for i, v := range All {
		if v == cur {
			idx = i
			break
		}
	}
	if idx < 0 {
		return All[0]
	}
	n := len(All)
	return All[((idx+step)%n+n)%n]
}

// Deactivate stops every stream and clears the active view.
func (d *Dispatcher) Deactivate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range telemetry.Streams {
		_ = d.streams.Stop(s)
	}
	d.active = ""
}
