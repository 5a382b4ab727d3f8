package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/rileyhilliard/vigil/internal/util"
	"github.com/spf13/cobra"
)

var statusTimeoutFlag string

var statusCmd = &cobra.Command{
	Use:   "status [stream...]",
	Short: "Fetch every stream once and classify it",
	Long: `Fetch each telemetry stream once, concurrently, and print the
classification of the latest reading.

Streams: cpu-memory, processes, connections, traffic. With no arguments
all four are fetched.

Examples:
  vigil status
  vigil status cpu-memory traffic
  vigil status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusTimeoutFlag, "timeout", "", "per-stream fetch timeout (default provider.timeout)")
}

// streamStatus is one row of `vigil status`.
type streamStatus struct {
	Stream     telemetry.StreamID    `json:"stream"`
	Tier       risk.Tier             `json:"tier"`
	Indicators []telemetry.Indicator `json:"indicators,omitempty"`
	Reading    *telemetry.Reading    `json:"reading,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func statusCommand(cmd *cobra.Command, args []string) error {
	streams, err := parseStreams(args)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	timeout := a.cfg.Provider.Timeout
	if statusTimeoutFlag != "" {
		if timeout, err = parseDurationFlag("timeout", statusTimeoutFlag); err != nil {
			return err
		}
	}

	results := fetchAll(cmd.Context(), a, streams, timeout)

	if machineMode {
		return writeJSON(cmd.OutOrStdout(), results)
	}

	rows := make([]ui.StreamRow, len(results))
	for i, r := range results {
		row := ui.StreamRow{Stream: string(r.Stream), Tier: r.Tier, Updated: "never", Error: r.Error}
		if r.Reading != nil {
			row.Value = summarize(r.Reading.Value)
			row.Updated = ui.FormatAge(r.Reading.Timestamp)
		}
		rows[i] = row
	}
	fmt.Fprint(cmd.OutOrStdout(), ui.RenderStreamTable(rows))
	return nil
}

// fetchAll fetches streams concurrently and returns results in input order.
func fetchAll(ctx context.Context, a *app, streams []telemetry.StreamID, timeout time.Duration) []streamStatus {
	results := make([]streamStatus, len(streams))
	var wg sync.WaitGroup
	for i, id := range streams {
		wg.Add(1)
		go func(i int, id telemetry.StreamID) {
			defer wg.Done()
			fctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res := streamStatus{Stream: id}
			reading, err := a.engine.FetchOnce(fctx, id)
			if err != nil {
				res.Error = errors.Reason(err)
				a.log.Debug("status %s: %v", id, err)
			} else {
				res.Reading = &reading
				res.Indicators = reading.Value.Indicators()
				res.Tier = reading.Tier()
			}
			results[i] = res
		}(i, id)
	}
	wg.Wait()
	return results
}

func parseStreams(args []string) ([]telemetry.StreamID, error) {
	if len(args) == 0 {
		return telemetry.Streams, nil
	}
	valid := make([]string, len(telemetry.Streams))
	for i, s := range telemetry.Streams {
		valid[i] = string(s)
	}
	out := make([]telemetry.StreamID, 0, len(args))
	for _, arg := range args {
		id := telemetry.StreamID(arg)
		if !id.Valid() {
			return nil, unknownValue("stream", arg, valid)
		}
		out = append(out, id)
	}
	return out, nil
}

// summarize renders a one-line description of a reading's value.
func summarize(v telemetry.Value) string {
	switch v := v.(type) {
	case telemetry.CPUMemorySample:
		return fmt.Sprintf("cpu %s  mem %s", ui.FormatPercent(v.CPUPercent), ui.FormatPercent(v.MemoryPercent))
	case telemetry.TrafficSample:
		s := fmt.Sprintf("up %s  down %s", ui.FormatRate(v.SentBytesPerSec), ui.FormatRate(v.RecvBytesPerSec))
		if v.Anomaly {
			s += "  anomaly"
		}
		return s
	case telemetry.ProcessList:
		return fmt.Sprintf("%d %s, %d suspicious", len(v), util.Pluralize(len(v), "process", "processes"), v.SuspiciousCount())
	case telemetry.ConnectionList:
		return fmt.Sprintf("%d %s, %d suspicious", len(v), util.Pluralize(len(v), "connection", "connections"), v.SuspiciousCount())
	default:
		return ""
	}
}
