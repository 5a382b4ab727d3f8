package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "vigil.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/vigil"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. VIGIL_PROVIDER_URL.
	EnvPrefix = "VIGIL"
)

// Load reads config from the specified path. Environment overrides apply
// on top of the file.
func Load(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'vigil config init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. vigil.yaml in current directory
// 3. ~/.config/vigil/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	if local := filepath.Join(cwd, ConfigFileName); fileExists(local) {
		return local, nil
	}

	if global := GlobalConfigPath(); global != "" && fileExists(global) {
		return global, nil
	}
	return "", nil
}

// GlobalConfigPath returns ~/.config/vigil/config.yaml, or "" if the home
// directory is unknown.
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault loads config from the found path, or returns defaults with
// environment overrides if no file exists. The returned path is empty in
// the latter case.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		cfg, err := parseConfig(newViper(), "environment")
		return cfg, "", err
	}
	cfg, err := Load(path)
	return cfg, path, err
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// setDefaults registers every key so AutomaticEnv can override it and so
// partial files merge with the defaults.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("provider.url", d.Provider.URL)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("provider.scan_timeout", d.Provider.ScanTimeout)
	for id, s := range d.Streams {
		v.SetDefault("streams."+id+".interval", s.Interval)
		v.SetDefault("streams."+id+".capacity", s.Capacity)
	}
	v.SetDefault("export.dir", d.Export.Dir)
	v.SetDefault("export.compress", d.Export.Compress)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("alerts.nats_url", d.Alerts.NATSURL)
	v.SetDefault("alerts.subject", d.Alerts.Subject)
	v.SetDefault("archive.path", d.Archive.Path)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, source string) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	cfg.Export.Dir = ExpandTilde(cfg.Export.Dir)
	cfg.Archive.Path = ExpandTilde(cfg.Archive.Path)
	return cfg, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
