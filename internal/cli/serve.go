package cli

import (
	"github.com/spf13/cobra"

	"github.com/diagramtools/mermaidfix/internal/server"
	"github.com/diagramtools/mermaidfix/pkg/pipeline"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the sanitization HTTP service",
		Long: `Serve starts an HTTP server exposing POST /v1/sanitize plus health and
readiness endpoints. The server shuts down gracefully on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			store, err := cfg.BuildCache()
			if err != nil {
				return err
			}
			defer store.Close()

			p, err := cfg.BuildProbe()
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(store, p, c.Logger)
			runner.Engine = cfg.RepairEngine()
			runner.Library = cfg.Library()
			runner.CacheScope = cfg.ProbeScope()
			runner.TTL = cfg.CacheTTL()

			srv := server.New(cfg, runner, store, c.Logger)
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
