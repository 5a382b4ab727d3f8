// Package alert publishes machine-readable events when scans or streams
// reach DANGER.
package alert

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "vigil.alerts"

// Publisher delivers an encoded event to a subject.
type Publisher interface {
	Publish(subject string, data []byte) error
	Close() error
}

// ScanEvent is emitted when a scan finishes with DANGER risk.
type ScanEvent struct {
	Kind       scan.Kind `json:"kind"`
	JobID      string    `json:"job_id"`
	RiskLevel  risk.Tier `json:"risk_level"`
	TotalFlags int       `json:"total_flags"`
	Verdict    string    `json:"verdict"`
	At         time.Time `json:"at"`
}

// StreamEvent is emitted when a stream's tier rises into DANGER.
type StreamEvent struct {
	Stream telemetry.StreamID `json:"stream"`
	Tier   risk.Tier          `json:"tier"`
	At     time.Time          `json:"at"`
}

// Notifier turns scan and stream observations into published events.
// Publish failures are logged and dropped.
type Notifier struct {
	pub     Publisher
	subject string
	log     logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	tiers map[telemetry.StreamID]risk.Tier
}

var (
	_ scan.Observer   = (*Notifier)(nil)
	_ poller.Observer = (*Notifier)(nil)
)

// NewNotifier creates a notifier. A nil publisher yields a notifier that
// only tracks tiers.
func NewNotifier(pub Publisher, subject string, log logger.Logger) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = logger.Noop()
	}
	return &Notifier{
		pub:     pub,
		subject: subject,
		log:     log,
		now:     time.Now,
		tiers:   make(map[telemetry.StreamID]risk.Tier),
	}
}

// Subject is the subject scan events go to. Stream events use Subject()+".stream".
func (n *Notifier) Subject() string { return n.subject }

func (n *Notifier) publish(subject string, v interface{}) {
	if n.pub == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		n.log.Error("encode alert: %v", err)
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.log.Warn("publish to %s failed: %v", subject, err)
	}
}

// ScanFinished publishes DANGER reports from successful scans.
func (n *Notifier) ScanFinished(job scan.Job) {
	if job.State != scan.StateSucceeded || job.Report == nil || job.Report.RiskLevel < risk.Danger {
		return
	}
	n.publish(n.subject, ScanEvent{
		Kind:       job.Kind,
		JobID:      job.ID,
		RiskLevel:  job.Report.RiskLevel,
		TotalFlags: job.Report.TotalFlags,
		Verdict:    job.Report.Verdict,
		At:         n.now().UTC(),
	})
}

func (n *Notifier) ScanStarted(scan.Kind)          {}
func (n *Notifier) ScanRejected(scan.Kind, string) {}

func (n *Notifier) FetchDone(telemetry.StreamID, time.Duration, error) {}

// StateChanged publishes when the latest reading's tier moves into DANGER.
// Staying in DANGER does not repeat the event.
func (n *Notifier) StateChanged(state poller.StreamState) {
	if state.Latest == nil {
		return
	}
	tier := state.Latest.Tier()

	n.mu.Lock()
	prev := n.tiers[state.Stream]
	n.tiers[state.Stream] = tier
	n.mu.Unlock()

	if tier == risk.Danger && prev != risk.Danger {
		n.log.Info("stream %s escalated to %s", state.Stream, tier)
		n.publish(n.subject+".stream", StreamEvent{Stream: state.Stream, Tier: tier, At: n.now().UTC()})
	}
}

// Close releases the publisher.
func (n *Notifier) Close() error {
	if n.pub == nil {
		return nil
	}
	return n.pub.Close()
}
