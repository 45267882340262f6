package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridkit/pkg/breakpoint"
	"github.com/matzehuels/gridkit/pkg/grid"
	"github.com/matzehuels/gridkit/pkg/server"
)

// serveCommand creates the serve command, which exposes the engine over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout API over HTTP",
		Long: `Serve the layout API over HTTP.

Every page and breakpoint is reachable under /api/pages/{page}/layouts/{bp}.
Changes are persisted to the configured store. The server shuts down
gracefully on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default: server.addr from config)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	eng, err := c.openEngine(ctx)
	if err != nil {
		return err
	}
	defer eng.Close()

	cfg := eng.Config().Server
	if addr != "" {
		cfg.Addr = addr
	}

	logger := loggerFromContext(ctx)
	eng.Registry().OnChange(func(page string, bp breakpoint.Breakpoint, l grid.Layout) {
		logger.Debug("layout changed", "page", page, "breakpoint", bp, "widgets", len(l.Widgets))
	})

	printInfo("Serving %s on %s", appName, StyleHighlight.Render(cfg.Addr))
	printDetail("Store: %s", eng.Config().Store.Kind)
	return server.New(eng, cfg, logger).ListenAndServe(ctx)
}
