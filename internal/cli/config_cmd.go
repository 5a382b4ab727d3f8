package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/risk"
	"github.com/rileyhilliard/vigil/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configInitForce  bool
	configInitGlobal bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, inspect and edit vigil.yaml",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write vigil.yaml with every default spelled out.

The file goes to --config if given, ~/.config/vigil/config.yaml with
--global, and ./vigil.yaml otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitCommand(cmd)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one value in the config file",
	Long: `Set a dotted key in the config file, keeping comments and order.

Examples:
  vigil config set provider.url http://10.0.0.5:8000
  vigil config set streams.traffic.interval 2s
  vigil config set archive.path ~/.local/share/vigil/reports.db`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return configSetCommand(cmd, args[0], args[1])
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Find(Config())
		if err != nil {
			return err
		}
		if machineMode {
			return writeJSON(cmd.OutOrStdout(), map[string]string{"path": path})
		}
		if path == "" {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("no config file, using defaults"))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if machineMode {
			return writeJSON(cmd.OutOrStdout(), cfg)
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configSetCmd, configPathCmd, configShowCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitGlobal, "global", false, "write the global config instead of ./vigil.yaml")
}

// initTarget picks where `config init` writes.
func initTarget() (string, error) {
	if Config() != "" {
		return Config(), nil
	}
	if configInitGlobal {
		path := config.GlobalConfigPath()
		if path == "" {
			return "", errors.New(errors.ErrConfig,
				"Can't find your home directory",
				"Pass an explicit path with --config.")
		}
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory", "")
	}
	return filepath.Join(cwd, config.ConfigFileName), nil
}

func configInitCommand(cmd *cobra.Command) error {
	path, err := initTarget()
	if err != nil {
		return err
	}

	force := configInitForce
	if !force && fileExists(path) && !machineMode && isTerminal(os.Stdin) {
		overwrite := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it?", path)).
				Affirmative("Overwrite").
				Negative("Keep it").
				Value(&overwrite),
		))
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig, "Failed to get user input", "")
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("kept "+path))
			return nil
		}
		force = true
	}

	if err := config.WriteDefault(path, force); err != nil {
		return err
	}
	if machineMode {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"path": path})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", ui.TierText(risk.Normal, ui.SymbolSuccess), path)
	return nil
}

func configSetCommand(cmd *cobra.Command, key, value string) error {
	path, err := config.Find(Config())
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New(errors.ErrConfig,
			"No config file to update",
			"Run 'vigil config init' first")
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, "Failed to read config file", "")
	}
	if err := config.SetValue(path, key, value); err != nil {
		return err
	}

	// An edit that leaves the file invalid is rolled back.
	cfg, err := config.Load(path)
	if err == nil {
		err = config.Validate(cfg)
	}
	if err != nil {
		if werr := os.WriteFile(path, original, 0o644); werr != nil {
			return errors.WrapWithCode(werr, errors.ErrConfig, "Failed to restore config file", path)
		}
		return err
	}

	if machineMode {
		return writeJSON(cmd.OutOrStdout(), map[string]string{"path": path, "key": key, "value": value})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", ui.TierText(risk.Normal, ui.SymbolSuccess), key, value)
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
