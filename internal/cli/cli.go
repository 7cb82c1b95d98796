// Package cli implements the pictoswap command-line interface.
//
// # Commands
//
//   - render: rasterize letters to "{id}-{i}.png" page images
//   - inspect: summarise the pages, strokes and ink of a letter
//   - play: replay a letter in the terminal with its original pacing
//   - trace: feed recorded pointer events through the editor and save the letter
//   - serve: run the HTTP API
//   - cache: manage the render cache
//   - config: print or create the configuration file
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/internal/config"
	"github.com/matzehuels/pictoswap/pkg/buildinfo"
	"github.com/matzehuels/pictoswap/pkg/cache"
	"github.com/matzehuels/pictoswap/pkg/pipeline"
	"github.com/matzehuels/pictoswap/pkg/preview"
	"github.com/matzehuels/pictoswap/pkg/raster"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pictoswap"
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
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Pictoswap draws, renders and replays ink-budgeted picture letters",
		Long:          `Pictoswap stores hand-drawn four-page letters as vector strokes, rasterizes them into preview images and replays them stroke by stroke.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ~/.config/pictoswap/config.toml)")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.playCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration selected by --config.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, path, exists, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if exists {
		c.Logger.Debug("loaded config", "path", path)
	}
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Previews are written to
// outDir when it is set.
func (c *CLI) newRunner(noCache bool, backgroundDir, outDir string) (*pipeline.Runner, error) {
	cc, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	var previews preview.Store
	if outDir != "" {
		if previews, err = preview.NewDirStore(outDir); err != nil {
			cc.Close()
			return nil, err
		}
	}
	return pipeline.NewRunner(cc, nil, newRenderer(backgroundDir), previews, c.Logger), nil
}

// newRenderer resolves backgrounds from dir first, then the built-in
// stationery.
func newRenderer(dir string) *raster.Renderer {
	if dir == "" {
		return raster.NewRenderer(nil)
	}
	return raster.NewRenderer(raster.Chain{raster.NewDirRegistry(dir), raster.DefaultRegistry()})
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// serverCache builds the cache selected in cfg.
func serverCache(ctx context.Context, cfg config.Cache) (cache.Cache, error) {
	switch cfg.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, cfg.RedisURL)
	default:
		return cache.NewFileCache(cfg.Dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/pictoswap/).
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

// openInput opens path, or stdin for "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
