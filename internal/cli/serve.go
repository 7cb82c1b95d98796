package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pictoswap/internal/config"
	"github.com/matzehuels/pictoswap/internal/server"
	"github.com/matzehuels/pictoswap/pkg/cache"
	"github.com/matzehuels/pictoswap/pkg/observability"
	"github.com/matzehuels/pictoswap/pkg/pipeline"
	"github.com/matzehuels/pictoswap/pkg/preview"
	"github.com/matzehuels/pictoswap/pkg/session"
	"github.com/matzehuels/pictoswap/pkg/store"
)

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the letter API",
		Long: `Run the HTTP API for uploading, sending and reading letters.

Storage, cache and preview backends come from the config file. Requests are
attributed to the user named in the auth.user_header header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config.Config) error {
	if lvl, err := log.ParseLevel(cfg.Logging.Level); err == nil && c.Logger.GetLevel() != log.DebugLevel {
		c.Logger.SetLevel(lvl)
	}
	observability.NewLogHooks(c.Logger).Install()
	defer observability.Reset()

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	runner, err := c.serverRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer runner.Close()

	key, err := session.LoadOrCreateKey(cfg.Auth.KeyFile)
	if err != nil {
		return err
	}
	signer := session.NewSigner(key, cfg.Auth.CodeTTL.Duration)

	c.Logger.Info("starting",
		"storage", cfg.Storage.Backend,
		"cache", cfg.Cache.Backend,
		"previews", cfg.Previews.Backend)

	srv := server.New(st, runner, signer, server.Options{
		UserHeader:     cfg.Auth.UserHeader,
		AllowAnonymous: cfg.Auth.AllowAnonymous,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         c.Logger,
	})
	return srv.Run(ctx, server.HTTPConfig{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout.Duration,
		WriteTimeout:    cfg.Server.WriteTimeout.Duration,
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration,
	})
}

// openStore opens the letter store selected in cfg.
func openStore(ctx context.Context, cfg config.Storage) (store.Store, error) {
	switch cfg.Backend {
	case "memory":
		return store.NewMemory(), nil
	case "mongo":
		return store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return store.OpenSQLite(ctx, cfg.SQLitePath)
	}
}

// serverRunner wires the render cache, preview store and backgrounds
// selected in cfg into a pipeline runner.
func (c *CLI) serverRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	cc, err := serverCache(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	keyer := cache.NewDefaultKeyer()
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Prefix)
	}

	var previews preview.Store
	switch cfg.Previews.Backend {
	case "cache":
		previews = preview.NewCacheStore(cc, keyer, cache.TTLPreview)
	default:
		if previews, err = preview.NewDirStore(cfg.Previews.Dir); err != nil {
			cc.Close()
			return nil, err
		}
	}

	return pipeline.NewRunner(cc, keyer, newRenderer(cfg.Backgrounds.Dir), previews, c.Logger), nil
}
