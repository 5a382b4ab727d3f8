package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rileyhilliard/vigil/internal/errors"
	"github.com/rileyhilliard/vigil/internal/telemetry"
	"github.com/rileyhilliard/vigil/internal/util"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.ErrConfig,
			"Config is nil",
			"This is unexpected - try reloading the configuration.")
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but vigil only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade vigil or regenerate the file with 'vigil config init --force'.")
	}

	if err := validateProvider(cfg.Provider); err != nil {
		return err
	}

	if err := validateStreams(cfg); err != nil {
		return err
	}

	if cfg.Server.Addr == "" {
		return errors.New(errors.ErrConfig,
			"server.addr is empty",
			"Set it to a listen address like 127.0.0.1:8080.")
	}

	if cfg.Alerts.NATSURL != "" && strings.TrimSpace(cfg.Alerts.Subject) == "" {
		return errors.New(errors.ErrConfig,
			"alerts.subject is empty while alerts are enabled",
			"Set alerts.subject, e.g. vigil.alerts.")
	}

	return nil
}

func validateProvider(p ProviderConfig) error {
	u, err := url.Parse(p.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("provider.url '%s' is not a valid URL", p.URL),
			"Use a full URL like http://127.0.0.1:5000.")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("provider.url scheme '%s' is not supported", u.Scheme),
			"Use http:// or https://.")
	}
	if p.Timeout <= 0 {
		return errors.New(errors.ErrConfig,
			"provider.timeout must be positive",
			"Try something like 4s.")
	}
	if p.ScanTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"provider.scan_timeout must be positive",
			"Try something like 60s.")
	}
	return nil
}

func validateStreams(cfg *Config) error {
	known := make([]string, len(telemetry.Streams))
	for i, s := range telemetry.Streams {
		known[i] = string(s)
	}

	ids := make([]string, 0, len(cfg.Streams))
	for id := range cfg.Streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	smallest := time.Duration(0)
	for _, id := range ids {
		s := cfg.Streams[id]
		if !telemetry.StreamID(id).Valid() {
			suggestion := "Known streams: " + strings.Join(known, ", ")
			if similar := util.SuggestSimilar(id, known, 1); len(similar) > 0 {
				suggestion = fmt.Sprintf("Did you mean '%s'?", similar[0])
			}
			return errors.New(errors.ErrConfig, fmt.Sprintf("Unknown stream '%s'", id), suggestion)
		}
		if s.Interval <= 0 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("streams.%s.interval must be positive", id),
				"Use a duration like 5s.")
		}
		if s.Capacity < MinCapacity || s.Capacity > MaxCapacity {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("streams.%s.capacity is %d, must be between %d and %d", id, s.Capacity, MinCapacity, MaxCapacity),
				"History is meant for a short sparkline, not long-term storage.")
		}
		if smallest == 0 || s.Interval < smallest {
			smallest = s.Interval
		}
	}

	if smallest > 0 && cfg.Provider.Timeout >= smallest {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("provider.timeout (%s) must be shorter than the smallest stream interval (%s)", cfg.Provider.Timeout, smallest),
			"Lower provider.timeout or raise the stream intervals.")
	}
	return nil
}
