package cli

import (
	"io"
	"os"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/monitor"
	"github.com/rileyhilliard/vigil/internal/view"
	"github.com/spf13/cobra"
)

var (
	monitorViewFlag    string
	monitorRefreshFlag string
	monitorLogFlag     string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive telemetry and scan dashboard",
	Long: `Start the interactive dashboard. Only the streams the current view needs
are polled; switching views stops the others.

Keyboard shortcuts:
  1-7, Tab    Switch view
  f           Run a full scan
  c           Run a cryptojacking check
  /           Scan a file
  e           Export the report for the current view
  s           Save a scan snapshot on the provider
  ?           Show help
  q / Ctrl+C  Quit

Examples:
  vigil monitor
  vigil monitor --view processes
  vigil monitor --log vigil.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return monitorCommand(monitorViewFlag, monitorRefreshFlag, monitorLogFlag)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().StringVar(&monitorViewFlag, "view", string(view.Overview), "initial view")
	monitorCmd.Flags().StringVar(&monitorRefreshFlag, "refresh", "", "dashboard redraw interval (default 1s)")
	monitorCmd.Flags().StringVar(&monitorLogFlag, "log", "", "write logs to this file instead of discarding them")
}

func monitorCommand(viewFlag, refreshFlag, logPath string) error {
	if !isTerminal(os.Stdout) {
		return errors.New(errors.ErrInvalidInput,
			"The dashboard needs an interactive terminal",
			"Use 'vigil status' or 'vigil serve' when piping output.")
	}

	initial, err := view.Parse(viewFlag)
	if err != nil {
		return err
	}
	refresh, err := parseDurationFlag("refresh", refreshFlag)
	if err != nil {
		return err
	}

	// Logs would tear the alt screen, so they go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Can't open log file "+logPath,
				"Check the path and permissions.")
		}
		defer f.Close()
		logOut = f
	}

	a, err := newApp(appOptions{Alerts: true, Archive: true, LogOutput: logOut})
	if err != nil {
		return err
	}
	defer a.Close()

	return monitor.Run(a.engine, monitor.Options{
		Version: formatVersion(version),
		Refresh: refresh,
		Initial: initial,
	})
}
