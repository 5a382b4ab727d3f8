// Package engine wires the provider, poller, scan orchestrator and view
// dispatcher into the surface the dashboard, API and CLI consume.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/vigil/internal/alert"
	"github.com/rileyhilliard/vigil/internal/archive"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/view"
	"github.com/rileyhilliard/vigil/pkg/provider"
)

// Deps are the optional collaborators of an Engine. Nil fields disable
// the corresponding feature.
type Deps struct {
	Metrics *metrics.Recorder
	Alerts  *alert.Notifier
	Archive *archive.Archive
	Log     logger.Logger
}

// Engine is the presentation boundary: snapshots of streams and scans,
// scan invocation, export and view activation.
type Engine struct {
	provider provider.Provider
	poller   *poller.Poller
	scans    *scan.Orchestrator
	views    *view.Dispatcher
	exporter *report.Exporter
	archive  *archive.Archive
	alerts   *alert.Notifier
	log      logger.Logger
	timeout  time.Duration
}

// New builds an engine from cfg. No stream polls until a view is activated.
func New(cfg *config.Config, p provider.Provider, deps Deps) *Engine {
	log := deps.Log
	if log == nil {
		log = logger.Noop()
	}

	var pollObs []poller.Observer
	var scanObs []scan.Observer
	if deps.Metrics != nil {
		pollObs = append(pollObs, deps.Metrics)
		scanObs = append(scanObs, deps.Metrics)
	}
	if deps.Alerts != nil {
		pollObs = append(pollObs, deps.Alerts)
		scanObs = append(scanObs, deps.Alerts)
	}

	pl := poller.New(Specs(cfg, p), logger.With(log, "[poller]"))
	if len(pollObs) > 0 {
		pl.SetObserver(pollerFanout(pollObs))
	}

	orch := scan.New(p, report.NewAggregator(), logger.With(log, "[scan]"))
	orch.SetTimeout(cfg.Provider.ScanTimeout)
	if len(scanObs) > 0 {
		orch.SetObserver(scanFanout(scanObs))
	}

	return &Engine{
		provider: p,
		poller:   pl,
		scans:    orch,
		views:    view.NewDispatcher(pl, logger.With(log, "[view]")),
		exporter: report.NewExporter(cfg.Export.Dir, cfg.Export.Compress),
		archive:  deps.Archive,
		alerts:   deps.Alerts,
		log:      log,
		timeout:  cfg.Provider.Timeout,
	}
}

// Specs builds one poller spec per stream from cfg, fetching through p.
func Specs(cfg *config.Config, p provider.Provider) []poller.Spec {
	specs := make([]poller.Spec, 0, len(telemetry.Streams))
	for _, id := range telemetry.Streams {
		s := cfg.Stream(id)
		specs = append(specs, poller.Spec{
			Stream:   id,
			Interval: s.Interval,
			Timeout:  cfg.Provider.Timeout,
			Capacity: s.Capacity,
			Fetch:    FetchFunc(p, id),
		})
	}
	return specs
}

// FetchFunc returns the provider call backing a stream.
func FetchFunc(p provider.Provider, id telemetry.StreamID) poller.FetchFunc {
	switch id {
	case telemetry.CPUMemory:
		return func(ctx context.Context) (telemetry.Value, error) {
			v, err := p.CPUMemory(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	case telemetry.Processes:
		return func(ctx context.Context) (telemetry.Value, error) {
			v, err := p.Processes(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	case telemetry.Connections:
		return func(ctx context.Context) (telemetry.Value, error) {
			v, err := p.Connections(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	case telemetry.Traffic:
		return func(ctx context.Context) (telemetry.Value, error) {
			v, err := p.Traffic(ctx)
			if err != nil {
				return nil, err
			}
			return v, nil
		}
	}
	return func(context.Context) (telemetry.Value, error) {
		return nil, errors.New(errors.ErrInvalidInput, fmt.Sprintf("Unknown stream: %s", id), "")
	}
}

// Streams lists every configured stream.
func (e *Engine) Streams() []telemetry.StreamID { return e.poller.Streams() }

// Current returns a stream's latest state without blocking on a fetch.
func (e *Engine) Current(id telemetry.StreamID) (poller.StreamState, error) {
	return e.poller.Current(id)
}

// Running reports whether a stream is being polled.
func (e *Engine) Running(id telemetry.StreamID) bool { return e.poller.Running(id) }

// Recent returns up to n readings, newest first.
func (e *Engine) Recent(id telemetry.StreamID, n int) ([]telemetry.Reading, error) {
	return e.poller.Recent(id, n)
}

// Indicators classifies a stream's latest reading. The tier is the highest
// indicator tier, or NORMAL when there is no reading yet.
func (e *Engine) Indicators(id telemetry.StreamID) ([]telemetry.Indicator, risk.Tier, error) {
	state, err := e.poller.Current(id)
	if err != nil {
		return nil, risk.Normal, err
	}
	if state.Latest == nil || state.Latest.Value == nil {
		return []telemetry.Indicator{}, risk.Normal, nil
	}
	return state.Latest.Value.Indicators(), state.Latest.Tier(), nil
}

// FetchOnce reads a stream directly from the provider without touching
// poller state. Used by one-shot commands.
func (e *Engine) FetchOnce(ctx context.Context, id telemetry.StreamID) (telemetry.Reading, error) {
	if !id.Valid() {
		return telemetry.Reading{}, errors.New(errors.ErrInvalidInput, fmt.Sprintf("Unknown stream: %s", id), "")
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	v, err := FetchFunc(e.provider, id)(ctx)
	if err != nil {
		return telemetry.Reading{}, err
	}
	return telemetry.Reading{Stream: id, Timestamp: time.Now(), Value: v}, nil
}

// Invoke starts a scan. See scan.Orchestrator.Invoke.
func (e *Engine) Invoke(kind scan.Kind, in *scan.FileInput) (<-chan scan.Job, error) {
	return e.scans.Invoke(kind, in)
}

// Result returns the current job of a scan kind.
func (e *Engine) Result(kind scan.Kind) (scan.Job, error) {
	return e.scans.Result(kind)
}

// Job looks up a recent run by id.
func (e *Engine) Job(id string) (scan.Job, bool) {
	return e.scans.Job(id)
}

// Save asks the provider to persist a snapshot.
func (e *Engine) Save(ctx context.Context) (*provider.SaveResult, error) {
	return e.scans.Save(ctx)
}

// LatestReport returns the last successful report of a kind.
func (e *Engine) LatestReport(kind scan.Kind) (*report.Report, error) {
	job, err := e.scans.Result(kind)
	if err != nil {
		return nil, err
	}
	if !job.HasReport() {
		return nil, errors.New(errors.ErrNotFound,
			fmt.Sprintf("No %s report yet", kind),
			fmt.Sprintf("Run a %s scan first", kind))
	}
	return job.Report, nil
}

// Serialize encodes the latest report of a kind and names its export file.
func (e *Engine) Serialize(kind scan.Kind) ([]byte, string, error) {
	r, err := e.LatestReport(kind)
	if err != nil {
		return nil, "", err
	}
	data, err := report.Serialize(r)
	if err != nil {
		return nil, "", err
	}
	return data, report.FilenameFor(r), nil
}

// Export writes the latest report of a kind to the export directory and
// records it in the archive when one is configured.
func (e *Engine) Export(kind scan.Kind) (string, error) {
	r, err := e.LatestReport(kind)
	if err != nil {
		return "", err
	}
	return e.ExportReport(r)
}

// ExportReport writes r and archives it.
func (e *Engine) ExportReport(r *report.Report) (string, error) {
	path, err := e.exporter.Write(r)
	if err != nil {
		return "", err
	}
	e.log.Info("exported %s report to %s", r.Kind, path)

	if e.archive != nil {
		if _, err := e.archive.RecordReport(r, path); err != nil {
			e.log.Warn("archive %s: %s", path, errors.Reason(err))
		}
	}
	return path, nil
}

// Activate switches the active view, starting and stopping streams.
func (e *Engine) Activate(id view.ID) error {
	return e.views.Activate(id)
}

// ActiveView returns the active view id.
func (e *Engine) ActiveView() view.ID { return e.views.Active() }

// NextView returns the view step positions away from the active one.
func (e *Engine) NextView(step int) view.ID { return e.views.Next(step) }

// Close stops polling, waits for running scans and releases the archive
// and alert publisher.
func (e *Engine) Close() error {
	e.views.Deactivate()
	e.poller.Close()
	e.scans.Close()

	var firstErr error
	if e.alerts != nil {
		if err := e.alerts.Close(); err != nil {
			firstErr = err
		}
	}
	if e.archive != nil {
		if err := e.archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
