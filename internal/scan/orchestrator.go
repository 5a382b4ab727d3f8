// Package scan runs on-demand scans with at most one run in flight per kind.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

// Kind is a scan kind. It is the same type reports carry.
type Kind = report.Kind

const (
	Full          = report.KindFull
	Cryptojacking = report.KindCryptojacking
	File          = report.KindFile
)

// State is the lifecycle state of a scan kind.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

const (
	// DefaultTimeout bounds a single provider scan call.
	DefaultTimeout = 60 * time.Second
	// historySize is how many finished runs stay addressable by id.
	historySize = 64
)

// FileInput is the payload for a file scan.
type FileInput struct {
	Name    string
	Content []byte
}

// Job is a snapshot of a scan kind. Report is the last successful report
// and survives failed re-runs; Error describes the most recent failure.
// Reports are never mutated once attached to a job.
type Job struct {
	ID         string         `json:"id,omitempty"`
	Kind       Kind           `json:"kind"`
	State      State          `json:"state"`
	StartedAt  time.Time      `json:"started_at,omitempty"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
	Report     *report.Report `json:"report,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// HasReport reports whether a successful report is available.
func (j Job) HasReport() bool { return j.Report != nil }

// Observer is notified of scan lifecycle events.
type Observer interface {
	ScanStarted(kind Kind)
	ScanFinished(job Job)
	ScanRejected(kind Kind, code string)
}

// Orchestrator owns one Job per scan kind.
type Orchestrator struct {
	provider provider.Provider
	agg      *report.Aggregator
	log      logger.Logger
	timeout  time.Duration
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	jobs    map[Kind]*Job
	saving  bool
	history *lru.Cache[string, Job]

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an orchestrator with every kind idle.
func New(p provider.Provider, agg *report.Aggregator, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Noop()
	}
	if agg == nil {
		agg = report.NewAggregator()
	}
	history, _ := lru.New[string, Job](historySize)
	base, cancel := context.WithCancel(context.Background())

	o := &Orchestrator{
		provider: p,
		agg:      agg,
		log:      log,
		timeout:  DefaultTimeout,
		now:      time.Now,
		jobs:     make(map[Kind]*Job, len(report.Kinds)),
		history:  history,
		base:     base,
		cancel:   cancel,
	}
	for _, k := range report.Kinds {
		o.jobs[k] = &Job{Kind: k, State: StateIdle}
	}
	return o
}

// SetTimeout sets the per-scan provider timeout.
func (o *Orchestrator) SetTimeout(d time.Duration) {
	if d > 0 {
		o.timeout = d
	}
}

// SetObserver registers an observer. Call before invoking scans.
func (o *Orchestrator) SetObserver(obs Observer) {
	o.observer = obs
}

// Invoke starts a scan and returns immediately. The returned channel
// receives the terminal snapshot once and is then closed.
//
// A file scan without a file fails with INVALID_INPUT and a kind that is
// already running fails with ALREADY_RUNNING. Neither touches the provider
// or the existing job.
func (o *Orchestrator) Invoke(kind Kind, in *FileInput) (<-chan Job, error) {
	if !kind.Valid() {
		return nil, o.reject(kind, errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Unknown scan kind: %s", kind),
			"Valid kinds: full, cryptojacking, file"))
	}
	if kind == File && (in == nil || in.Name == "") {
		return nil, o.reject(kind, errors.New(errors.ErrInvalidInput,
			"No file selected",
			"Choose a file to analyze before starting a file scan"))
	}

	o.mu.Lock()
	job := o.jobs[kind]
	if job.State == StateRunning {
		o.mu.Unlock()
		return nil, o.reject(kind, errors.New(errors.ErrAlreadyRunning,
			fmt.Sprintf("A %s scan is already running", kind),
			"Wait for the current scan to finish"))
	}
	job.ID = uuid.New().String()
	job.State = StateRunning
	job.StartedAt = o.now()
	job.FinishedAt = time.Time{}
	runID := job.ID
	o.mu.Unlock()

	o.log.Info("started %s scan %s", kind, runID)
	if o.observer != nil {
		o.observer.ScanStarted(kind)
	}

	done := make(chan Job, 1)
	o.wg.Add(1)
	go o.run(kind, runID, in, done)
	return done, nil
}

func (o *Orchestrator) reject(kind Kind, err *errors.Error) error {
	o.log.Debug("rejected %s scan: %s", kind, err.Message)
	if o.observer != nil {
		o.observer.ScanRejected(kind, err.Code)
	}
	return err
}

func (o *Orchestrator) run(kind Kind, runID string, in *FileInput, done chan<- Job) {
	defer o.wg.Done()
	defer close(done)

	ctx, cancel := context.WithTimeout(o.base, o.timeout)
	defer cancel()

	rep, err := o.call(ctx, kind, in)

	o.mu.Lock()
	job := o.jobs[kind]
	job.FinishedAt = o.now()
	if err != nil {
		job.State = StateFailed
		job.Error = errors.Reason(err)
	} else {
		job.State = StateSucceeded
		job.Report = rep
		job.Error = ""
	}
	snapshot := *job
	o.history.Add(runID, snapshot)
	o.mu.Unlock()

	if err != nil {
		o.log.Warn("%s scan %s failed: %s", kind, runID, snapshot.Error)
	} else {
		o.log.Info("%s scan %s finished: %d flags, risk %s", kind, runID, rep.TotalFlags, rep.RiskLevel)
	}
	if o.observer != nil {
		o.observer.ScanFinished(snapshot)
	}
	done <- snapshot
}

// call issues exactly one provider request for the kind.
func (o *Orchestrator) call(ctx context.Context, kind Kind, in *FileInput) (*report.Report, error) {
	switch kind {
	case Full:
		res, err := o.provider.FullScan(ctx)
		if err != nil {
			return nil, err
		}
		return o.agg.FromFullScan(res), nil
	case Cryptojacking:
		res, err := o.provider.CryptojackingCheck(ctx)
		if err != nil {
			return nil, err
		}
		return o.agg.FromCryptojacking(res), nil
	case File:
		res, err := o.provider.ScanFile(ctx, in.Name, bytes.NewReader(in.Content))
		if err != nil {
			return nil, err
		}
		return o.agg.FromFileScan(res), nil
	}
	return nil, errors.New(errors.ErrInvalidInput, fmt.Sprintf("Unknown scan kind: %s", kind), "")
}

// Result returns the current snapshot for a kind without blocking.
func (o *Orchestrator) Result(kind Kind) (Job, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[kind]
	if !ok {
		return Job{}, errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Unknown scan kind: %s", kind),
			"Valid kinds: full, cryptojacking, file")
	}
	return *job, nil
}

// Job returns the terminal snapshot of a recent run by id. Running jobs
// are found through Result.
func (o *Orchestrator) Job(id string) (Job, bool) {
	return o.history.Get(id)
}

// Save asks the provider to persist a snapshot. Concurrent saves are
// rejected with ALREADY_RUNNING.
func (o *Orchestrator) Save(ctx context.Context) (*provider.SaveResult, error) {
	o.mu.Lock()
	if o.saving {
		o.mu.Unlock()
		return nil, errors.New(errors.ErrAlreadyRunning,
			"A snapshot save is already running", "Wait for it to finish")
	}
	o.saving = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.saving = false
		o.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	res, err := o.provider.SaveScan(ctx)
	if err != nil {
		o.log.Warn("snapshot save failed: %s", errors.Reason(err))
		return nil, err
	}
	o.log.Info("provider saved snapshot %s", res.Filename)
	return res, nil
}

// Close cancels running scans and waits for them to record their outcome.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}
