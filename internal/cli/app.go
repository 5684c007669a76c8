package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/adapters/file"
	redisstore "github.com/aretw0/chaptree/internal/adapters/redis"
	"github.com/aretw0/chaptree/internal/config"
	"github.com/aretw0/chaptree/internal/logging"
	"github.com/aretw0/chaptree/pkg/adapters/memory"
	"github.com/aretw0/chaptree/pkg/adapters/process"
	redislock "github.com/aretw0/chaptree/pkg/adapters/redis"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/observability"
	"github.com/aretw0/chaptree/pkg/persistence/middleware"
	"github.com/aretw0/chaptree/pkg/ports"
	"github.com/aretw0/chaptree/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
	Debug      bool
	Store      string
	Dir        string

	// LogOutput receives log records. Defaults to os.Stderr.
	LogOutput io.Writer
}

// App holds the wired components of one CLI invocation.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Engine   *chaptree.Engine
	Manager  *session.Manager
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	closers []io.Closer
}

// Setup loads the configuration, applies the flags over it and wires the
// store, the engine and the session manager.
func Setup(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Store != "" {
		cfg.Store.Kind = opts.Store
	}
	if opts.Dir != "" {
		cfg.Store.Dir = opts.Dir
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := createLogger(cfg.Log, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(app.Registry)

	hooks := app.Metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}
	app.Engine = chaptree.New(
		chaptree.WithLogger(logger),
		chaptree.WithLifecycleHooks(hooks),
		chaptree.WithLayout(cfg.Layout),
	)

	store, locker, err := app.openStore()
	if err != nil {
		return nil, err
	}
	if store, err = app.wrapStore(store); err != nil {
		return nil, err
	}

	managerOpts := []session.Option{
		session.WithEngine(app.Engine),
		session.WithLogger(logger),
		session.WithObserver(app.Metrics.Observe),
	}
	if cfg.HooksFile != "" {
		hooks, err := process.LoadHooks(cfg.HooksFile)
		if err != nil {
			return nil, err
		}
		runner := process.NewRunner(
			process.WithHooks(hooks.Hooks...),
			process.WithTimeout(hooks.Timeout),
			process.WithBaseDir(filepath.Dir(cfg.HooksFile)),
			process.WithLogger(logger),
		)
		managerOpts = append(managerOpts, session.WithObserver(runner.Observer()))
		logger.Debug("revision hooks loaded", "file", cfg.HooksFile, "count", len(hooks.Hooks))
	}
	if locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(locker), session.WithLockTTL(cfg.Lock.TTL))
	}
	app.Manager = session.NewManager(store, managerOpts...)
	return app, nil
}

// openStore builds the configured document store and, for Redis with
// locking enabled, the distributed locker sharing its client.
func (a *App) openStore() (ports.DocumentStore, ports.DistributedLocker, error) {
	cfg := a.Config.Store
	switch cfg.Kind {
	case config.StoreMemory:
		return memory.NewStore(), nil, nil
	case config.StoreFile:
		a.Logger.Debug("using file store", "dir", cfg.Dir)
		return file.New(cfg.Dir), nil, nil
	case config.StoreRedis:
		store := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.TTL),
		)
		a.closers = append(a.closers, store)
		a.Logger.Debug("using redis store", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)

		if !a.Config.Lock.Enabled {
			return store, nil, nil
		}
		return store, redislock.NewLocker(store.Client(), cfg.Redis.Prefix), nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

// wrapStore adds validation and, when a key is configured, encryption at rest.
// Validation runs first so names are checked before they are sealed.
func (a *App) wrapStore(store ports.DocumentStore) (ports.DocumentStore, error) {
	mws := []middleware.Middleware{middleware.NewValidationMiddleware()}

	active, fallback, err := a.Config.Store.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		sealed, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		mws = append(mws, sealed)
		a.Logger.Debug("encryption at rest enabled", "fallback_keys", len(fallback))
	}
	return middleware.Chain(store, mws...), nil
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// createLogger configures the application logger.
// Logs go to Stderr to stay apart from outlines printed on Stdout.
func createLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return logging.NewWithWriter(w, level, cfg.Format), nil
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnCommandApplied: func(ctx context.Context, e *domain.CommandEvent) {
			logger.DebugContext(ctx, "Command Applied", "kind", e.Kind, "path", e.Path, "node_id", e.NodeID, "chapters", e.Chapters)
		},
		OnCommandRejected: func(ctx context.Context, e *domain.CommandEvent) {
			logger.DebugContext(ctx, "Command Rejected", "kind", e.Kind, "path", e.Path, "err", e.Err)
		},
	}
}
