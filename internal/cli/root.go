package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/rileyhilliard/vigil/internal/util"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	verboseFlag bool
	noColorFlag bool
)

// Config returns the --config flag value.
func Config() string {
	return cfgFile
}

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Host telemetry and threat classification",
	Long: `vigil watches a host through a detection provider: it polls CPU/memory,
processes, network connections and traffic, classifies every reading as
NORMAL, WARNING or DANGER, and runs full, cryptojacking and file scans on
demand.

Run 'vigil config init' to create vigil.yaml, then 'vigil monitor' for the
dashboard or 'vigil serve' for the HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verboseFlag {
			os.Setenv(logger.DebugEnv, "1")
		}
		if noColorFlag || os.Getenv("NO_COLOR") != "" {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./vigil.yaml or ~/.config/vigil/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if code, ok := errors.GetExitCode(err); ok {
		os.Exit(code)
	}

	if machineMode {
		_ = writeJSONError(os.Stdout, err)
		os.Exit(1)
	}

	if isUnknownCommandError(err) {
		if suggestion := suggestCommand(extractUnknownCommand(err)); suggestion != "" {
			err = errors.New(errors.ErrInvalidInput, err.Error(), suggestion)
		}
	}
	fmt.Fprintln(os.Stderr, renderError(err))
	os.Exit(1)
}

// renderError formats err for stderr. Structured errors carry their own
// marker and suggestion block.
func renderError(err error) string {
	if errors.CodeOf(err) != "" {
		return strings.TrimRight(err.Error(), "\n")
	}
	return ui.TierText(risk.Danger, "✗ ") + err.Error()
}

func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls "foo" out of `unknown command "foo" for "vigil"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start < 0 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end < 0 {
		return ""
	}
	return msg[start+1 : start+1+end]
}

func suggestCommand(name string) string {
	if name == "" {
		return ""
	}
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	if similar := util.SuggestSimilar(name, names, 1); len(similar) > 0 {
		return fmt.Sprintf("Did you mean 'vigil %s'?", similar[0])
	}
	return "Run 'vigil --help' to see available commands."
}
