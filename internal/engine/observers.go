package engine

import (
	"time"

	"github.com/rileyhilliard/vigil/internal/poller"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/telemetry"
)

type pollerFanout []poller.Observer

func (f pollerFanout) FetchDone(stream telemetry.StreamID, took time.Duration, err error) {
	for _, o := range f {
		o.FetchDone(stream, took, err)
	}
}

func (f pollerFanout) StateChanged(state poller.StreamState) {
	for _, o := range f {
		o.StateChanged(state)
	}
}

type scanFanout []scan.Observer

func (f scanFanout) ScanStarted(kind scan.Kind) {
	for _, o := range f {
		o.ScanStarted(kind)
	}
}

func (f scanFanout) ScanFinished(job scan.Job) {
	for _, o := range f {
		o.ScanFinished(job)
	}
}

func (f scanFanout) ScanRejected(kind scan.Kind, code string) {
	for _, o := range f {
		o.ScanRejected(kind, code)
	}
}
