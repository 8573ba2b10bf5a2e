package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vgadepth/internal/config"
	"github.com/matzehuels/vgadepth/pkg/api"
	"github.com/matzehuels/vgadepth/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the step-depth HTTP API",
		Long: `Serve the step-depth HTTP API.

Endpoints:
  GET  /healthz
  POST /v1/stepdepth           run an analysis on a posted graph
  GET  /v1/runs/{id}           run record
  GET  /v1/runs/{id}/column    computed column

Run records live in the result cache, so a file cache is swapped for an
in-memory one; use the redis backend to share runs between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Server.Addr
			}
			return c.runServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string) error {
	if c.Config.Cache.Backend == config.CacheFile || c.Config.Cache.Backend == config.CacheNone {
		c.Config.Cache.Backend = config.CacheMemory
	}
	runner, err := c.newRunner(ctx, false)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	observability.SetRunHooks(observability.NewLogRunHooks(c.Logger))
	observability.SetCacheHooks(&observability.LogCacheHooks{Logger: c.Logger})
	defer observability.Reset()

	srv := api.New(runner,
		api.WithLogger(c.Logger),
		api.WithRunTimeout(c.Config.Server.RunTimeout.Duration),
		api.WithMaxCells(c.Config.Analysis.MaxCells),
	)
	printInfo("Serving on %s", addr)
	return srv.ListenAndServe(ctx, addr)
}
