package cli

import (
	"fmt"
	"strconv"

	"github.com/rileyhilliard/vigil/internal/archive"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/report"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

var (
	reportsKindFlag   string
	reportsLimitFlag  int
	reportsFormatFlag string
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Browse exported reports in the archive",
	Long: `List and show reports recorded in the SQLite archive.

Every export is recorded when archive.path is set in vigil.yaml.`,
}

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportsListCommand(cmd)
	},
}

var reportsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportsShowCommand(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reportsCmd)
	reportsCmd.AddCommand(reportsListCmd, reportsShowCmd)
	reportsListCmd.Flags().StringVar(&reportsKindFlag, "kind", "", "only list this kind: full, cryptojacking or file")
	reportsListCmd.Flags().IntVar(&reportsLimitFlag, "limit", 20, "maximum entries to list (0 for all)")
	reportsShowCmd.Flags().StringVar(&reportsFormatFlag, "format", FormatMarkdown, "output format: table, json or markdown")
}

func openArchive() (*archive.Archive, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.Path == "" {
		return nil, errors.New(errors.ErrConfig,
			"The report archive is not enabled",
			"Set archive.path: vigil config set archive.path ~/.local/share/vigil/reports.db")
	}
	return archive.Open(cfg.Archive.Path, logger.NewEnvLogger("[archive]"))
}

func reportsListCommand(cmd *cobra.Command) error {
	var kind report.Kind
	if reportsKindFlag != "" {
		k, err := parseKind(reportsKindFlag)
		if err != nil {
			return err
		}
		kind = k
	}

	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.List(kind, reportsLimitFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if machineMode {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, ui.Muted("No archived reports"))
		return nil
	}

	columns := []ui.TableColumn{
		{Title: "ID", Width: 5},
		{Title: "KIND", Width: 14},
		{Title: "RISK", Width: 9},
		{Title: "FLAGS", Width: 6},
		{Title: "SUBJECT", Width: 24},
		{Title: "CREATED", Width: 16},
	}
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.FormatInt(e.ID, 10),
			string(e.Kind),
			e.RiskLevel.String(),
			strconv.Itoa(e.TotalFlags),
			e.Subject,
			ui.FormatAge(e.CreatedAt),
		}
	}
	fmt.Fprintln(out, ui.RenderSimpleTable(columns, rows))
	return nil
}

func reportsShowCommand(cmd *cobra.Command, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return errors.New(errors.ErrInvalidInput,
			fmt.Sprintf("Invalid report id %q", arg),
			"Run 'vigil reports list' to see archived report ids.")
	}
	format, err := parseFormat(reportsFormatFlag)
	if err != nil {
		return err
	}

	a, err := openArchive()
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.Get(id)
	if err != nil {
		return err
	}
	r, err := report.ReadFile(entry.Path)
	if err != nil {
		return err
	}
	return writeReport(cmd.OutOrStdout(), r, format)
}
