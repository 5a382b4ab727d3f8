package cli

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/vigil/internal/alert"
	"github.com/rileyhilliard/vigil/internal/archive"
	"github.com/rileyhilliard/vigil/internal/config"
	"github.com/rileyhilliard/vigil/internal/engine"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/metrics"
	"github.com/rileyhilliard/vigil/pkg/provider"
	"golang.org/x/term"
)

// newProvider builds the provider for cfg. Tests replace it with a mock.
var newProvider = func(cfg *config.Config, log logger.Logger) (provider.Provider, error) {
	return provider.NewClient(cfg.Provider.URL, log)
}

// appOptions selects the optional collaborators an app wires up.
type appOptions struct {
	// Registerer enables Prometheus metrics when non-nil.
	Registerer prometheus.Registerer
	// Alerts connects to NATS when the config enables it.
	Alerts bool
	// Archive opens the SQLite archive when the config enables it.
	Archive bool
	// LogOutput redirects logs, e.g. away from the dashboard's alt screen.
	LogOutput io.Writer
}

// app is a loaded config plus the engine built over it.
type app struct {
	cfg     *config.Config
	cfgPath string
	engine  *engine.Engine
	log     logger.Logger
}

// loadConfig resolves, loads and validates the configuration.
func loadConfig() (*config.Config, string, error) {
	cfg, path, err := config.LoadOrDefault(Config())
	if err != nil {
		return nil, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newApp(opts appOptions) (*app, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var log logger.Logger = logger.NewEnvLogger("[vigil]")
	if opts.LogOutput != nil {
		log = logger.NewWriterLogger(opts.LogOutput, "[vigil]")
	}
	if path != "" {
		log.Debug("using config %s", path)
	}

	p, err := newProvider(cfg, logger.With(log, "[provider]"))
	if err != nil {
		return nil, err
	}

	deps := engine.Deps{Log: log}
	if opts.Registerer != nil {
		deps.Metrics = metrics.NewRecorder(opts.Registerer)
	}
	if opts.Alerts && cfg.Alerts.NATSURL != "" {
		pub, err := alert.ConnectNATS(cfg.Alerts.NATSURL, logger.With(log, "[alerts]"))
		if err != nil {
			return nil, err
		}
		deps.Alerts = alert.NewNotifier(pub, cfg.Alerts.Subject, logger.With(log, "[alerts]"))
	}
	if opts.Archive && cfg.Archive.Path != "" {
		a, err := archive.Open(cfg.Archive.Path, logger.With(log, "[archive]"))
		if err != nil {
			if deps.Alerts != nil {
				_ = deps.Alerts.Close()
			}
			return nil, err
		}
		deps.Archive = a
	}

	return &app{
		cfg:     cfg,
		cfgPath: path,
		engine:  engine.New(cfg, p, deps),
		log:     log,
	}, nil
}

func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		a.log.Warn("shutdown: %v", err)
	}
}

// isTerminal reports whether f is an interactive terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
