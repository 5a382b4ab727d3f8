package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	vigilerrors "github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func cpuSpec(interval time.Duration, fetch FetchFunc) Spec {
	return Spec{
		Stream:   telemetry.CPUMemory,
		Interval: interval,
		Capacity: 10,
		Fetch:    fetch,
	}
}

func sample(cpu float64) telemetry.Value {
	return telemetry.CPUMemorySample{CPUPercent: cpu, MemoryPercent: 40}
}

type recordingObserver struct {
	mu      sync.Mutex
	fetches int
	states  []StreamState
}

func (o *recordingObserver) FetchDone(telemetry.StreamID, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches++
}

func (o *recordingObserver) StateChanged(s StreamState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func TestNew_ClampsTimeout(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		timeout  time.Duration
		want     time.Duration
	}{
		{"unset", 5 * time.Second, 0, 4 * time.Second},
		{"equal to interval", 5 * time.Second, 5 * time.Second, 4 * time.Second},
		{"above interval", 8 * time.Second, 30 * time.Second, 6400 * time.Millisecond},
		{"valid", 10 * time.Second, 3 * time.Second, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := logger.NewBufferLogger()
			spec := cpuSpec(tt.interval, nil)
			spec.Timeout = tt.timeout
			p := New([]Spec{spec}, log)
			assert.Equal(t, tt.want, p.streams[telemetry.CPUMemory].spec.Timeout)
		})
	}
}

func TestStart_FirstFetchIsImmediate(t *testing.T) {
	p := New([]Spec{cpuSpec(time.Hour, func(ctx context.Context) (telemetry.Value, error) {
		return sample(42), nil
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))

	require.Eventually(t, func() bool {
		s, _ := p.Current(telemetry.CPUMemory)
		return s.Status == StatusReady
	}, waitFor, tick)

	s, err := p.Current(telemetry.CPUMemory)
	require.NoError(t, err)
	require.NotNil(t, s.Latest)
	assert.Equal(t, sample(42), s.Latest.Value)
	assert.True(t, s.Running)
	assert.Len(t, s.History, 1)
}

func TestStart_Idempotent(t *testing.T) {
	var calls atomic.Int32
	p := New([]Spec{cpuSpec(time.Hour, func(ctx context.Context) (telemetry.Value, error) {
		calls.Add(1)
		return sample(1), nil
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.NoError(t, p.Start(telemetry.CPUMemory))

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "only one loop should be running")
}

func TestUnknownStream(t *testing.T) {
	p := New(nil, nil)

	err := p.Start("gpu")
	assert.True(t, vigilerrors.IsCode(err, vigilerrors.ErrInvalidInput))
	_, err = p.Current("gpu")
	assert.Error(t, err)
	_, err = p.Recent("gpu", 3)
	assert.Error(t, err)
	assert.False(t, p.Running("gpu"))
}

func TestFailureRetainsLatest(t *testing.T) {
	var calls atomic.Int32
	p := New([]Spec{cpuSpec(10*time.Millisecond, func(ctx context.Context) (telemetry.Value, error) {
		if calls.Add(1) == 1 {
			return sample(55), nil
		}
		return nil, vigilerrors.New(vigilerrors.ErrProviderUnavailable, "HTTP 500: provider down", "")
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))

	require.Eventually(t, func() bool {
		s, _ := p.Current(telemetry.CPUMemory)
		return s.Status == StatusError
	}, waitFor, tick)

	s, _ := p.Current(telemetry.CPUMemory)
	require.NotNil(t, s.Latest, "stale reading should be kept")
	assert.Equal(t, sample(55), s.Latest.Value)
	assert.Equal(t, "HTTP 500: provider down", s.LastError)
	assert.Len(t, s.History, 1, "failures are not appended to history")

	// Retries keep happening at the fixed interval.
	before := calls.Load()
	require.Eventually(t, func() bool { return calls.Load() > before+2 }, waitFor, tick)
}

func TestRecoveryClearsError(t *testing.T) {
	var calls atomic.Int32
	p := New([]Spec{cpuSpec(10*time.Millisecond, func(ctx context.Context) (telemetry.Value, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return sample(20), nil
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.Eventually(t, func() bool {
		s, _ := p.Current(telemetry.CPUMemory)
		return s.Status == StatusReady
	}, waitFor, tick)

	s, _ := p.Current(telemetry.CPUMemory)
	assert.Empty(t, s.LastError)
}

func TestStopMidFetch_DiscardsResult(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})

	p := New([]Spec{cpuSpec(time.Hour, func(ctx context.Context) (telemetry.Value, error) {
		close(entered)
		<-release
		defer close(returned)
		return sample(99), nil
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))
	<-entered

	inFlight, _ := p.Current(telemetry.CPUMemory)
	assert.True(t, inFlight.Fetching())

	require.NoError(t, p.Stop(telemetry.CPUMemory))
	before, _ := p.Current(telemetry.CPUMemory)
	assert.False(t, before.Running)
	assert.Equal(t, StatusIdle, before.Status)

	close(release)
	<-returned
	time.Sleep(20 * time.Millisecond)

	after, _ := p.Current(telemetry.CPUMemory)
	assert.Equal(t, before, after, "a stopped stream must not be resurrected")
	assert.Nil(t, after.Latest)
	assert.Empty(t, after.History)
}

func TestStop_NoFurtherFetches(t *testing.T) {
	var calls atomic.Int32
	p := New([]Spec{cpuSpec(10*time.Millisecond, func(ctx context.Context) (telemetry.Value, error) {
		calls.Add(1)
		return sample(1), nil
	})}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, waitFor, tick)
	require.NoError(t, p.Stop(telemetry.CPUMemory))
	require.NoError(t, p.Stop(telemetry.CPUMemory), "stopping twice is a no-op")

	stopped := calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), stopped+1, "at most the in-flight fetch may finish")
	assert.False(t, p.Running(telemetry.CPUMemory))
}

func TestStreamsAreIsolated(t *testing.T) {
	failing := Spec{
		Stream:   telemetry.Connections,
		Interval: 10 * time.Millisecond,
		Capacity: 5,
		Fetch: func(ctx context.Context) (telemetry.Value, error) {
			return nil, errors.New("access denied")
		},
	}
	hung := Spec{
		Stream:   telemetry.Processes,
		Interval: 20 * time.Millisecond,
		Capacity: 5,
		Fetch: func(ctx context.Context) (telemetry.Value, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	healthy := cpuSpec(10*time.Millisecond, func(ctx context.Context) (telemetry.Value, error) {
		return sample(30), nil
	})

	p := New([]Spec{failing, hung, healthy}, nil)
	defer p.Close()
	for _, id := range p.Streams() {
		require.NoError(t, p.Start(id))
	}

	require.Eventually(t, func() bool {
		h, _ := p.Recent(telemetry.CPUMemory, 10)
		return len(h) >= 3
	}, waitFor, tick)

	c, _ := p.Current(telemetry.Connections)
	assert.Equal(t, StatusError, c.Status)
	assert.Equal(t, "access denied", c.LastError)

	require.Eventually(t, func() bool {
		s, _ := p.Current(telemetry.Processes)
		return s.Status == StatusError
	}, waitFor, tick)
}

func TestFetchesNeverOverlap(t *testing.T) {
	var active, maxActive atomic.Int32
	p := New([]Spec{{
		Stream:   telemetry.Traffic,
		Interval: 5 * time.Millisecond,
		Timeout:  4 * time.Millisecond,
		Capacity: 20,
		Fetch: func(ctx context.Context) (telemetry.Value, error) {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			select {
			case <-ctx.Done():
			case <-time.After(15 * time.Millisecond):
			}
			return telemetry.TrafficSample{}, nil
		},
	}}, nil)

	require.NoError(t, p.Start(telemetry.Traffic))
	time.Sleep(100 * time.Millisecond)

	// Churn the stream while a fetch may be in flight.
	require.NoError(t, p.Stop(telemetry.Traffic))
	require.NoError(t, p.Start(telemetry.Traffic))
	time.Sleep(50 * time.Millisecond)
	p.Close()

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestHistoryBoundedNewestFirst(t *testing.T) {
	var n atomic.Int32
	spec := cpuSpec(2*time.Millisecond, func(ctx context.Context) (telemetry.Value, error) {
		return sample(float64(n.Add(1))), nil
	})
	spec.Capacity = 5
	p := New([]Spec{spec}, nil)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.Eventually(t, func() bool { return n.Load() >= 8 }, waitFor, tick)
	require.NoError(t, p.Stop(telemetry.CPUMemory))

	recent, err := p.Recent(telemetry.CPUMemory, 10)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	for i := 1; i < len(recent); i++ {
		prev := recent[i-1].Value.(telemetry.CPUMemorySample).CPUPercent
		cur := recent[i].Value.(telemetry.CPUMemorySample).CPUPercent
		assert.Equal(t, prev-1, cur, "history should be newest first")
	}
}

func TestObserverNotified(t *testing.T) {
	obs := &recordingObserver{}
	p := New([]Spec{cpuSpec(time.Hour, func(ctx context.Context) (telemetry.Value, error) {
		return sample(90), nil
	})}, nil)
	p.SetObserver(obs)

	require.NoError(t, p.Start(telemetry.CPUMemory))
	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return obs.fetches == 1 && len(obs.states) >= 2
	}, waitFor, tick)
	p.Close()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.True(t, obs.states[0].Running)
	last := obs.states[len(obs.states)-1]
	assert.False(t, last.Running)
}

// gatedObserver blocks delivery of the first Ready state until released.
type gatedObserver struct {
	recordingObserver
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (o *gatedObserver) StateChanged(s StreamState) {
	if s.Status == StatusReady {
		o.once.Do(func() {
			close(o.held)
			<-o.release
		})
	}
	o.recordingObserver.StateChanged(s)
}

func TestObserverSeesStopAfterFinalFetch(t *testing.T) {
	obs := &gatedObserver{held: make(chan struct{}), release: make(chan struct{})}
	p := New([]Spec{cpuSpec(time.Hour, func(ctx context.Context) (telemetry.Value, error) {
		return sample(90), nil
	})}, nil)
	p.SetObserver(obs)
	defer p.Close()

	require.NoError(t, p.Start(telemetry.CPUMemory))

	select {
	case <-obs.held:
	case <-time.After(waitFor):
		t.Fatal("fetch never reported a ready state")
	}

	stopped := make(chan struct{})
	go func() {
		_ = p.Stop(telemetry.CPUMemory)
		close(stopped)
	}()

	close(obs.release)
	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("stop did not return")
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.NotEmpty(t, obs.states)
	last := obs.states[len(obs.states)-1]
	assert.False(t, last.Running, "observer must end on the stopped state")
	assert.False(t, p.Running(telemetry.CPUMemory))
}
