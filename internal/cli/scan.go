package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/scan"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

// ExitDanger is the exit code --fail-on-danger uses for a DANGER report.
const ExitDanger = 2

var (
	scanExportFlag       bool
	scanFormatFlag       string
	scanFailOnDangerFlag bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <full|cryptojacking|file> [path]",
	Short: "Run one scan and print its report",
	Long: `Run a scan against the provider and print the normalized report.

A file scan uploads the file at path. Without a path, an interactive
terminal is prompted for one.

Exit codes: 0 on success, 1 if the scan failed, 2 with --fail-on-danger
when the report's risk level is DANGER.

Examples:
  vigil scan full
  vigil scan cryptojacking --format markdown
  vigil scan file ./download.bin --export
  vigil scan full --json --fail-on-danger`,
	Args: cobra.RangeArgs(1, 2),
	ValidArgs: []string{
		string(report.KindFull),
		string(report.KindCryptojacking),
		string(report.KindFile),
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		return scanCommand(cmd, args[0], path)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Ask the provider to save a scan snapshot",
	Long: `Trigger a provider-side scan and have the provider write the results
to its own scan_results_<timestamp>.json file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return saveCommand(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd, saveCmd)
	scanCmd.Flags().BoolVar(&scanExportFlag, "export", false, "also write the report to export.dir")
	scanCmd.Flags().StringVar(&scanFormatFlag, "format", FormatTable, "output format: table, json or markdown")
	scanCmd.Flags().BoolVar(&scanFailOnDangerFlag, "fail-on-danger", false, "exit 2 when the report is DANGER")
}

func scanCommand(cmd *cobra.Command, kindArg, path string) error {
	kind, err := parseKind(kindArg)
	if err != nil {
		return err
	}
	format, err := parseFormat(scanFormatFlag)
	if err != nil {
		return err
	}

	var in *scan.FileInput
	if kind == scan.File {
		if in, err = fileInput(path); err != nil {
			return err
		}
	} else if path != "" {
		return errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("A %s scan doesn't take a path", kind),
			"Only 'vigil scan file' accepts a path.")
	}

	a, err := newApp(appOptions{Alerts: true, Archive: true})
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := runScan(a, kind, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := writeReport(out, job.Report, format); err != nil {
		return err
	}

	if scanExportFlag {
		exported, err := a.engine.ExportReport(job.Report)
		if err != nil {
			return err
		}
		if !machineMode {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", ui.Muted("exported to "+exported))
		}
	}

	if scanFailOnDangerFlag && job.Report.RiskLevel == risk.Danger {
		return errors.NewExitError(ExitDanger)
	}
	return nil
}

// runScan invokes kind and waits for it, with a spinner on a terminal.
func runScan(a *app, kind scan.Kind, in *scan.FileInput) (scan.Job, error) {
	ch, err := a.engine.Invoke(kind, in)
	if err != nil {
		return scan.Job{}, err
	}

	var sp *ui.Spinner
	if !machineMode && isTerminal(os.Stderr) {
		sp = ui.NewSpinner(scanTitle(kind))
		sp.SetOutput(func(s string) { fmt.Fprint(os.Stderr, s) })
		sp.Start()
	}

	job := <-ch
	if job.State == scan.StateFailed {
		if sp != nil {
			sp.Fail("")
		}
		return job, errors.New(errors.ErrProviderUnavailable,
			fmt.Sprintf("%s failed: %s", scanTitle(kind), job.Error),
			"Check that the provider is running at provider.url.")
	}
	if sp != nil {
		sp.Success(ui.TierBadge(job.Report.RiskLevel))
	}
	return job, nil
}

// fileInput reads the file to scan, prompting for a path on a terminal
// when none was given.
func fileInput(path string) (*scan.FileInput, error) {
	if path == "" {
		if machineMode || !isTerminal(os.Stdin) {
			return nil, errors.New(errors.ErrInvalidInput,
				"No file given",
				"Pass a path: vigil scan file <path>")
		}
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("File to scan").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("a path is required")
					}
					return nil
				}).
				Value(&path),
		))
		if err := form.Run(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrInvalidInput,
				"Failed to get user input",
				"Pass the path as an argument instead.")
		}
	}

	path = config.ExpandTilde(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrInvalidInput,
			fmt.Sprintf("Can't read %s", path),
			"Check the path and permissions.")
	}
	return &scan.FileInput{Name: filepath.Base(path), Content: content}, nil
}

func saveCommand(cmd *cobra.Command) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Provider.ScanTimeout+5*time.Second)
	defer cancel()

	res, err := a.engine.Save(ctx)
	if err != nil {
		return err
	}
	if machineMode {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved %s\n", ui.TierText(risk.Normal, ui.SymbolSuccess), res.Filename)
	if res.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), ui.Muted(res.Message))
	}
	return nil
}

func scanTitle(kind scan.Kind) string {
	switch kind {
	case scan.Full:
		return "Full scan"
	case scan.Cryptojacking:
		return "Cryptojacking check"
	default:
		return "File scan"
	}
}
