package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/vigil/internal/api"
	"github.com/rileyhilliard/vigil/internal/logger"
	"github.com/rileyhilliard/vigil/internal/view"
	"github.com/spf13/cobra"
)

var (
	serveAddrFlag string
	serveViewFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP with Prometheus metrics",
	Long: `Run the engine headless behind a JSON API. /metrics exposes fetch,
stream and scan metrics; NATS alerts and the report archive are enabled
when configured.

The --view flag picks which streams poll at startup. POST /api/views/{id}
switches it at runtime.

Examples:
  vigil serve
  vigil serve --addr :9100 --view processes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serveCommand(ctx, serveAddrFlag, serveViewFlag)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().StringVar(&serveViewFlag, "view", string(view.Overview), "view to activate at startup")
}

func serveCommand(ctx context.Context, addr, viewFlag string) error {
	initial, err := view.Parse(viewFlag)
	if err != nil {
		return err
	}

	a, err := newApp(appOptions{
		Registerer: prometheus.DefaultRegisterer,
		Alerts:     true,
		Archive:    true,
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.Activate(initial); err != nil {
		return err
	}
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	srv := api.NewServer(a.engine, logger.With(a.log, "[api]"))
	srv.SetGatherer(prometheus.DefaultGatherer)
	return srv.ListenAndServe(ctx, addr)
}
