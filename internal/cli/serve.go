package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/internal/server"
	"github.com/matzehuels/halftone/pkg/cache"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/raster"
)

// serveCommand creates the serve command that exposes the render API over
// HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		maxUpload int64
		maxPixels int
		noCache   bool
		noStore   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the render API over HTTP",
		Long: `Serve the render API over HTTP.

Endpoints:
  GET    /healthz             liveness
  GET    /algorithms          algorithm catalog
  GET    /palettes[/{key}]    built-in palettes
  POST   /validate            validate a pipeline description
  POST   /render              multipart: image plus graph or preset
  GET    /presets             list presets
  GET|PUT|DELETE /presets/{name}`,
		Example: `  halftone serve --addr :9000
  halftone serve --config server.toml

Set cache.backend = "memory" to keep rendered artifacts in process for the
lifetime of the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := namedLogger(ctx, "server")
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ch, err := newCache(ctx, cfg.Cache, noCache, logger)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(c.newExecutor(), ch, cache.NewScopedKeyer(nil, "server:"), logger)
			runner.TTL = cfg.Cache.TTL.Duration
			defer runner.Close()

			var srv *server.Server
			if noStore {
				srv = server.New(runner, nil, logger)
			} else {
				st, err := c.newStore(ctx)
				if err != nil {
					return err
				}
				defer st.Close()
				srv = server.New(runner, st, logger)
			}
			srv.SetMaxUpload(maxUpload)
			srv.SetMaxPixels(maxPixels)

			printInfo("Listening on %s", StyleHighlight.Render(addr))
			printDetail("cache: %s  store: %s", cfg.Cache.Backend, storeLabel(cfg, noStore))
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, "+server.DefaultAddr+")")
	cmd.Flags().Int64Var(&maxUpload, "max-upload", server.DefaultMaxUpload, "maximum request body size in bytes")
	cmd.Flags().IntVar(&maxPixels, "max-pixels", raster.DefaultMaxPixels, "largest accepted image in pixels (width × height)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the preset endpoints")

	return cmd
}

func storeLabel(cfg Config, disabled bool) string {
	if disabled {
		return "disabled"
	}
	return cfg.Store.Backend
}
