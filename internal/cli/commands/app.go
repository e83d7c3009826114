package commands

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/conduit-lang/scopegraph/internal/cache"
	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/conduit-lang/scopegraph/internal/model"
	"github.com/conduit-lang/scopegraph/internal/resolver"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Database drivers for schema introspection
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// App holds the components every command works with
type App struct {
	Viper    *viper.Viper
	Config   *config.Config
	Logger   *zap.Logger
	Registry *model.Registry
	Resolver *resolver.Resolver

	closers []func() error
}

// newApp loads the configuration, the model manifest and the static table
// and wires the resolver
func newApp(configPath string) (*App, error) {
	v := config.New(configPath)
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	app := &App{Viper: v, Config: cfg, Logger: logger}
	app.onClose(func() error {
		_ = logger.Sync()
		return nil
	})

	if err := app.wire(); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire() error {
	manifest, err := model.LoadManifest(a.Config.Models.Manifest)
	if err != nil {
		return err
	}
	a.Registry = model.NewRegistry()
	if err := a.Registry.RegisterAll(manifest.Descriptors()...); err != nil {
		return fmt.Errorf("invalid model manifest: %w", err)
	}

	table, err := config.LoadStaticTable(a.Config.Discovery.StaticTable)
	if err != nil {
		return err
	}

	si, err := a.openIntrospector()
	if err != nil {
		return err
	}

	dc, err := a.openCache()
	if err != nil {
		return err
	}

	orchestrator := discovery.NewOrchestrator(si, resolver.OrchestratorOptions(a.Config.Discovery), a.Logger.Named("discovery"))
	a.Resolver = resolver.New(orchestrator,
		resolver.WithStaticTable(table),
		resolver.WithCache(dc),
		resolver.WithDiscovery(a.Config.Discovery),
		resolver.WithLogger(a.Logger.Named("resolver")),
	)

	a.Logger.Debug("application wired",
		zap.Int("entities", a.Registry.Len()),
		zap.Int("static_entries", table.Len()),
		zap.String("driver", a.Config.Introspection.Driver),
		zap.String("cache_backend", a.Config.Discovery.Cache.Backend),
	)
	return nil
}

// openIntrospector connects the configured schema source. The "none"
// driver disables introspection; discovery then relies on names and casts.
func (a *App) openIntrospector() (introspect.SchemaIntrospector, error) {
	cfg := a.Config.Introspection

	var source introspect.Source
	switch cfg.Driver {
	case "postgres":
		db, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		a.onClose(db.Close)
		source = introspect.NewPostgres(db, cfg.Schemas...)
	case "sqlite":
		db, err := sql.Open("sqlite3", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		a.onClose(db.Close)
		source = introspect.NewSQLite(db)
	case "neo4j":
		runner, err := introspect.NewDriverRunner(cfg.DSN, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			return nil, err
		}
		a.onClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return runner.Close(ctx)
		})
		source = introspect.NewNeo4j(runner)
	default:
		return introspect.Nop{}, nil
	}

	icfg := introspect.DefaultConfig()
	icfg.TTL = time.Duration(cfg.CacheTTL) * time.Second
	icfg.Retries = cfg.Retries
	cached := introspect.NewCached(source, icfg, a.Logger.Named("introspect"))
	a.onClose(cached.Close)
	return cached, nil
}

// openCache creates the discovery cache over the configured backend. It
// returns nil when caching is disabled.
func (a *App) openCache() (*cache.DiscoveryCache, error) {
	cfg := a.Config.Discovery.Cache
	if !cfg.Enabled {
		return nil, nil
	}

	opts := cache.Options{TTL: cfg.TTLDuration(), Prefix: cfg.Redis.Prefix}

	var backend cache.Backend
	switch cfg.Backend {
	case "redis":
		rc, err := cache.DialRedis(cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, opts)
		if err != nil {
			return nil, err
		}
		a.onClose(rc.Close)
		backend = rc
	default:
		mc := cache.NewMemory(opts)
		a.onClose(mc.Close)
		backend = mc
	}

	return cache.NewDiscoveryCache(backend,
		cache.WithTTL(cfg.TTLDuration()),
		cache.WithLogger(a.Logger.Named("cache")),
	), nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases connections in reverse order of acquisition
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// newLogger builds a production or development zap logger at the
// configured level
func newLogger(cfg config.Log) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}
