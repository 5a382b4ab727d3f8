// Package metrics exports poller and scan activity as Prometheus series.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
)

const namespace = "vigil"

// Result label values.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultRejected  = "rejected"
)

// Recorder implements poller.Observer and scan.Observer.
type Recorder struct {
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	streamRunning *prometheus.GaugeVec
	streamTier    *prometheus.GaugeVec
	scanTotal     *prometheus.CounterVec
	scanRunning   *prometheus.GaugeVec
	reportFlags   *prometheus.GaugeVec
}

var (
	_ poller.Observer = (*Recorder)(nil)
	_ scan.Observer   = (*Recorder)(nil)
)

// NewRecorder creates the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Telemetry fetches by stream and outcome.",
		}, []string{"stream", "result"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Provider round-trip time per telemetry fetch.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"stream"}),
		streamRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_running",
			Help:      "1 while a stream is being polled.",
		}, []string{"stream"}),
		streamTier: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_tier",
			Help:      "Risk tier of the latest reading (0 normal, 1 warning, 2 danger).",
		}, []string{"stream"}),
		scanTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_total",
			Help:      "Scan invocations by kind and outcome.",
		}, []string{"kind", "result"}),
		scanRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "scan_running",
			Help:      "1 while a scan of the kind is in flight.",
		}, []string{"kind"}),
		reportFlags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_flags",
			Help:      "total_flags of the latest successful report per kind.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(
			r.fetchTotal, r.fetchDuration, r.streamRunning, r.streamTier,
			r.scanTotal, r.scanRunning, r.reportFlags,
		)
	}
	return r
}

// FetchDone records one fetch attempt.
func (r *Recorder) FetchDone(stream telemetry.StreamID, took time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.fetchTotal.WithLabelValues(string(stream), result).Inc()
	r.fetchDuration.WithLabelValues(string(stream)).Observe(took.Seconds())
}

// StateChanged tracks running state and the tier of the latest reading.
func (r *Recorder) StateChanged(state poller.StreamState) {
	s := string(state.Stream)
	r.streamRunning.WithLabelValues(s).Set(boolFloat(state.Running))
	tier := risk.Normal
	if state.Latest != nil {
		tier = state.Latest.Tier()
	}
	r.streamTier.WithLabelValues(s).Set(float64(tier))
}

// ScanStarted marks a kind as in flight.
func (r *Recorder) ScanStarted(kind scan.Kind) {
	r.scanRunning.WithLabelValues(string(kind)).Set(1)
}

// ScanFinished counts the outcome and publishes the report's flag count.
func (r *Recorder) ScanFinished(job scan.Job) {
	k := string(job.Kind)
	r.scanRunning.WithLabelValues(k).Set(0)
	if job.State == scan.StateSucceeded {
		r.scanTotal.WithLabelValues(k, ResultSucceeded).Inc()
		if job.Report != nil {
			r.reportFlags.WithLabelValues(k).Set(float64(job.Report.TotalFlags))
		}
		return
	}
	r.scanTotal.WithLabelValues(k, ResultFailed).Inc()
}

// ScanRejected counts invocations refused before reaching the provider.
func (r *Recorder) ScanRejected(kind scan.Kind, _ string) {
	r.scanTotal.WithLabelValues(string(kind), ResultRejected).Inc()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
