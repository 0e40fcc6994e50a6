package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/halftone/pkg/buildinfo"
	"github.com/matzehuels/halftone/pkg/cache"
	"github.com/matzehuels/halftone/pkg/overlay"
	"github.com/matzehuels/halftone/pkg/pipeline"
	"github.com/matzehuels/halftone/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "halftone"

	// maskCacheEntries bounds the background masks kept per process.
	maskCacheEntries = 32
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	config     *Config
	masks      *overlay.MaskCache
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		masks:  overlay.NewMaskCache(maskCacheEntries),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Halftone applies dithering and glitch effects to images",
		Long:         `Halftone runs images through pipelines of dithering, halftone, tone and glitch effects. Pipelines are graphs of effect nodes that can be saved as presets, rendered from the command line or served over HTTP.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/halftone/config.toml)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.framesCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.palettesCommand())
	root.AddCommand(c.algorithmsCommand())
	root.AddCommand(c.pickCommand())
	root.AddCommand(c.presetCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file once per process.
func (c *CLI) loadConfig() (Config, error) {
	if c.config != nil {
		return *c.config, nil
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return cfg, err
	}
	c.config = &cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newExecutor creates an executor over the default registry with the
// overlay adapters attached.
func (c *CLI) newExecutor() *pipeline.Executor {
	return pipeline.NewExecutor(nil, c.Logger, overlay.NewText(), overlay.NewBackground(c.masks))
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ch, err := newCache(ctx, cfg.Cache, noCache, c.Logger)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(c.newExecutor(), ch, nil, c.Logger)
	r.TTL = cfg.Cache.TTL.Duration
	return r, nil
}

// newCache builds the configured artifact cache. A file backend whose
// directory cannot be resolved degrades to no caching with a warning.
func newCache(ctx context.Context, cfg CacheConfig, noCache bool, logger *log.Logger) (cache.Cache, error) {
	if noCache || cfg.Backend == backendNone {
		return cache.NewNullCache(), nil
	}

	var (
		inner cache.Cache
		err   error
	)
	switch cfg.Backend {
	case backendRedis:
		inner, err = cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
	case backendMemory:
		n := cfg.MaxEntries
		if n == 0 {
			n = defaultMemoryEntries
		}
		inner = cache.NewMemoryCache(n)
	default:
		dir := cfg.Dir
		if dir == "" {
			if dir, err = cacheDir(); err != nil {
				logger.Warn("render cache disabled", "reason", "no cache directory", "err", err)
				return cache.NewNullCache(), nil
			}
		}
		inner, err = cache.NewFileCache(dir)
	}
	if err != nil {
		return nil, err
	}
	if !cfg.Compress {
		return inner, nil
	}
	compressed, err := cache.NewCompressed(inner)
	if err != nil {
		inner.Close()
		return nil, err
	}
	return compressed, nil
}

// newStore opens the configured preset store.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Backend == backendMongo {
		s, err := store.NewMongoStore(ctx, store.MongoConfig{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.MongoDatabase,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/halftone/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configDir returns the config directory using XDG standard (~/.config/halftone/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
