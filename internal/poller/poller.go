// Package poller runs one fixed-interval fetch loop per telemetry stream and
// keeps the latest reading, a bounded history and a status for each.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/telemetry"
)

// Status describes the outcome of a stream's most recent fetch.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusFetching Status = "fetching"
	StatusReady    Status = "ready"
	StatusError    Status = "error"
)

// FetchFunc retrieves one value for a stream. It must honor ctx.
type FetchFunc func(ctx context.Context) (telemetry.Value, error)

// Spec configures one stream.
type Spec struct {
	Stream   telemetry.StreamID
	Interval time.Duration
	// Timeout bounds each fetch. Values not below Interval are clamped.
	Timeout  time.Duration
	Capacity int
	Fetch    FetchFunc
}

// StreamState is a point-in-time copy of a stream's state.
type StreamState struct {
	Stream    telemetry.StreamID  `json:"stream"`
	Latest    *telemetry.Reading  `json:"latest,omitempty"`
	History   []telemetry.Reading `json:"history"`
	Status    Status              `json:"status"`
	LastError string              `json:"last_error,omitempty"`
	Running   bool                `json:"running"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Fetching reports whether a fetch is in flight.
func (s StreamState) Fetching() bool { return s.Status == StatusFetching }

// Observer receives fetch outcomes and state changes. Calls are made
// outside the poller's locks and may come from any stream goroutine.
type Observer interface {
	FetchDone(stream telemetry.StreamID, took time.Duration, err error)
	StateChanged(state StreamState)
}

type stream struct {
	spec Spec

	// fetchMu serializes fetch calls, including a discarded one still
	// finishing after a stop/start cycle.
	fetchMu sync.Mutex

	// notifyMu is held from snapshot to observer delivery so observers
	// see state changes in the order they were made. Taken before mu.
	notifyMu sync.Mutex

	mu      sync.RWMutex
	ring    *telemetry.Ring[telemetry.Reading]
	latest  *telemetry.Reading
	status  Status
	settled Status // status of the last completed fetch
	lastErr string
	updated time.Time
	cancel  context.CancelFunc
	gen     uint64
}

// Poller owns the state of every configured stream.
type Poller struct {
	streams  map[telemetry.StreamID]*stream
	log      logger.Logger
	observer Observer
	now      func() time.Time
	wg       sync.WaitGroup
}

// New creates a poller for the given stream specs. No stream runs until
// Start is called for it.
func New(specs []Spec, log logger.Logger) *Poller {
	if log == nil {
		log = logger.Noop()
	}
	p := &Poller{
		streams: make(map[telemetry.StreamID]*stream, len(specs)),
		log:     log,
		now:     time.Now,
	}
	for _, spec := range specs {
		if spec.Timeout <= 0 || spec.Timeout >= spec.Interval {
			clamped := spec.Interval * 4 / 5
			if spec.Timeout > 0 {
				log.Warn("stream %s timeout %s is not below interval %s, using %s",
					spec.Stream, spec.Timeout, spec.Interval, clamped)
			}
			spec.Timeout = clamped
		}
		p.streams[spec.Stream] = &stream{
			spec:    spec,
			ring:    telemetry.NewRing[telemetry.Reading](spec.Capacity),
			status:  StatusIdle,
			settled: StatusIdle,
		}
	}
	return p
}

// SetObserver registers an observer. Call before starting any stream.
func (p *Poller) SetObserver(o Observer) {
	p.observer = o
}

// Streams returns the configured stream ids.
func (p *Poller) Streams() []telemetry.StreamID {
	out := make([]telemetry.StreamID, 0, len(p.streams))
	for _, id := range telemetry.Streams {
		if _, ok := p.streams[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (p *Poller) get(id telemetry.StreamID) (*stream, error) {
	s, ok := p.streams[id]
	if !ok {
		return nil, errors.New(errors.ErrInvalidInput,
			"Unknown stream: "+string(id),
			"Valid streams: cpu-memory, processes, connections, traffic")
	}
	return s, nil
}

// Start begins the fetch loop for a stream. The first fetch runs
// immediately. Starting a running stream is a no-op.
func (p *Poller) Start(id telemetry.StreamID) error {
	s, err := p.get(id)
	if err != nil {
		return err
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.gen++
	gen := s.gen
	state := s.snapshotLocked()
	s.mu.Unlock()

	p.log.Debug("starting stream %s every %s", id, s.spec.Interval)
	p.notify(state)

	p.wg.Add(1)
	go p.run(ctx, s, gen)
	return nil
}

// Stop cancels a stream's loop. A fetch already in flight may finish but
// its result is discarded. Stopping an idle stream is a no-op.
func (p *Poller) Stop(id telemetry.StreamID) error {
	s, err := p.get(id)
	if err != nil {
		return err
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	s.cancel = nil
	s.gen++
	s.status = s.settled
	state := s.snapshotLocked()
	s.mu.Unlock()

	p.log.Debug("stopped stream %s", id)
	p.notify(state)
	return nil
}

// Running reports whether a stream's loop is active.
func (p *Poller) Running(id telemetry.StreamID) bool {
	s, err := p.get(id)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

// Current returns a snapshot of a stream's state. It never waits on a fetch.
func (p *Poller) Current(id telemetry.StreamID) (StreamState, error) {
	s, err := p.get(id)
	if err != nil {
		return StreamState{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Recent returns up to n readings for a stream, newest first.
func (p *Poller) Recent(id telemetry.StreamID, n int) ([]telemetry.Reading, error) {
	s, err := p.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ring.Recent(n), nil
}

// Close stops every stream and waits for their goroutines to exit.
func (p *Poller) Close() {
	for id := range p.streams {
		_ = p.Stop(id)
	}
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context, s *stream, gen uint64) {
	defer p.wg.Done()

	ticker := time.NewTicker(s.spec.Interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		p.fetch(s, gen)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// fetch runs one fetch and applies its result if the stream is still on
// the same generation. The fetch context is not tied to the loop so a
// stop lets the call finish instead of aborting it.
func (p *Poller) fetch(s *stream, gen uint64) {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.status = StatusFetching
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.spec.Timeout)
	start := p.now()
	value, err := s.spec.Fetch(ctx)
	cancel()
	took := p.now().Sub(start)

	if p.observer != nil {
		p.observer.FetchDone(s.spec.Stream, took, err)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		p.log.Debug("discarding result for stopped stream %s", s.spec.Stream)
		return
	}

	s.updated = p.now()
	if err != nil {
		s.status = StatusError
		s.lastErr = errors.Reason(err)
		p.log.Debug("stream %s fetch failed: %s", s.spec.Stream, s.lastErr)
	} else {
		reading := telemetry.Reading{Stream: s.spec.Stream, Timestamp: s.updated, Value: value}
		s.ring.Append(reading)
		s.latest = &reading
		s.status = StatusReady
		s.lastErr = ""
	}
	s.settled = s.status
	state := s.snapshotLocked()
	s.mu.Unlock()

	p.notify(state)
}

func (p *Poller) notify(state StreamState) {
	if p.observer != nil {
		p.observer.StateChanged(state)
	}
}

// snapshotLocked copies the state. Caller holds s.mu.
func (s *stream) snapshotLocked() StreamState {
	state := StreamState{
		Stream:    s.spec.Stream,
		History:   s.ring.Recent(s.ring.Cap()),
		Status:    s.status,
		LastError: s.lastErr,
		Running:   s.cancel != nil,
		UpdatedAt: s.updated,
	}
	if s.latest != nil {
		latest := *s.latest
		state.Latest = &latest
	}
	if state.History == nil {
		state.History = []telemetry.Reading{}
	}
	return state
}
