package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/conduit-lang/scopegraph/internal/generator"
	"github.com/conduit-lang/scopegraph/internal/ops"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/conduit-lang/scopegraph/internal/watch"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string
	var noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ops server",
		Long: `Run the HTTP ops server.

Endpoints:
  GET    /healthz
  GET    /metrics
  GET    /entities
  GET    /entities/{name}/preview
  GET    /entities/{name}/compare
  GET    /cache
  POST   /cache/warm
  DELETE /cache
  DELETE /cache/{name}
  POST   /detect

When ops.jwt_secret is set every endpoint except /healthz and /metrics
requires an HS256 bearer token (see 'scopegraph token').

The static configuration table is watched: edits are validated and applied
without a restart, and the discovery cache is cleared so that changed
entities are resolved again.`,
		Example: `  scopegraph serve
  scopegraph serve --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.Config.Ops.Addr
			}

			serverOpts := []ops.Option{
				ops.WithLogger(app.Logger.Named("ops")),
				ops.WithAuth(app.Config.Ops.JWTSecret),
			}
			if app.Config.LLM.APIKey != "" {
				text, err := generator.NewOpenAI(app.Config.LLM, app.Logger.Named("openai"))
				if err != nil {
					return err
				}
				serverOpts = append(serverOpts, ops.WithGenerator(generator.New(text, app.Logger.Named("generator"))))
			}
			server := ops.New(app.Resolver, app.Registry, serverOpts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noWatch {
				stopWatching, err := watchStaticTable(ctx, app)
				if err != nil {
					return err
				}
				defer stopWatching()
			}

			color.New(color.FgCyan, color.Bold).Fprintf(cmd.OutOrStdout(), "scopegraph ops server listening on %s\n", addr)
			return server.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: ops.addr)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the static configuration table on change")
	return cmd
}

// watchStaticTable reloads the static configuration table when it or the
// configuration file changes. Invalid edits are logged and the previous
// table stays in effect.
func watchStaticTable(ctx context.Context, app *App) (func(), error) {
	logger := app.Logger.Named("watch")
	current := app.Config.Discovery.StaticTable

	reload := func(path string) {
		table, err := config.LoadStaticTable(path)
		if err != nil {
			logger.Error("static configuration table rejected", zap.String("path", path), zap.Error(err))
			return
		}
		app.Resolver.SetStaticTable(table)
		if err := app.Resolver.Clear(ctx); err != nil && !errors.Is(err, resolver.ErrCacheDisabled) {
			logger.Warn("failed to clear discovery cache", zap.Error(err))
		}
		logger.Info("static configuration table reloaded", zap.String("path", path), zap.Int("entries", table.Len()))
	}

	if app.Viper.ConfigFileUsed() != "" {
		config.Watch(app.Viper, logger, func(cfg *config.Config) {
			if cfg.Discovery.StaticTable != current {
				current = cfg.Discovery.StaticTable
				reload(current)
			}
		})
	}

	path := app.Config.Discovery.StaticTable
	if path == "" {
		return func() {}, nil
	}

	fw, err := watch.New([]string{path}, func(changed []string) error {
		reload(path)
		return nil
	}, watch.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to watch static configuration table: %w", err)
	}
	if err := fw.Start(); err != nil {
		return nil, fmt.Errorf("failed to watch static configuration table: %w", err)
	}

	return func() {
		if err := fw.Stop(); err != nil {
			logger.Warn("failed to stop file watcher", zap.Error(err))
		}
	}, nil
}

func newTokenCommand(opts *globalOptions) *cobra.Command {
	var subject string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:     "token",
		Short:   "Issue a bearer token for the ops server",
		Long:    "Issue an HS256 bearer token signed with ops.jwt_secret.",
		Example: `  scopegraph token --subject deploy-bot --ttl 24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile())
			if err != nil {
				return err
			}
			if cfg.Ops.JWTSecret == "" {
				return fmt.Errorf("ops.jwt_secret is not set")
			}

			token, err := ops.NewAuthService(cfg.Ops.JWTSecret).GenerateToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "ops", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
