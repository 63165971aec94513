package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/api"
	"github.com/MrEthical07/gatekeeper/audit/natssink"
	"github.com/MrEthical07/gatekeeper/internal/config"
	"github.com/MrEthical07/gatekeeper/internal/logging"
	"github.com/MrEthical07/gatekeeper/metrics/export/prometheus"
	"github.com/MrEthical07/gatekeeper/userstore"
)

func serveCmd(root *rootOptions) *cobra.Command {
	var embeddedRedis bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if embeddedRedis {
				cfg.Redis.Embedded = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With(logging.FieldService, "gatekeeper")
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&embeddedRedis, "embedded-redis", false, "run an in-process Redis (development only)")
	return cmd
}

// app is the wired service: engine, stores and HTTP server.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  *gatekeeper.Engine
	server  *http.Server
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	rdb, err := a.openRedis(ctx)
	if err != nil {
		return nil, err
	}

	users, err := a.openUserStore(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := a.openAuditSink()
	if err != nil {
		return nil, err
	}

	builder := gatekeeper.New().
		WithConfig(cfg.Engine()).
		WithRedis(rdb).
		WithPermissions(gatekeeper.DefaultPermissions()).
		WithRoles(gatekeeper.DefaultRoles()).
		WithUserProvider(users).
		WithLogger(logger)
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}
	a.engine = engine
	a.closers = append(a.closers, engine.Close)

	opts := api.Options{
		Logger:         logger,
		TrustProxy:     cfg.Server.TrustProxy,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.NewExporter(engine).Handler()
	}

	a.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(engine, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	addr := a.cfg.Redis.Addr
	if a.cfg.Redis.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded redis: %w", err)
		}
		a.closers = append(a.closers, mr.Close)
		addr = mr.Addr()
		a.logger.Warn("using embedded redis; counters and blacklist are not persisted", "addr", addr)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	if err := rdb.Ping(ctx).Err(); err != nil {
		// Not fatal: each request fails open or closed per rate_limit.fail_open.
		a.logger.Warn("redis unreachable at startup", "addr", addr, "error", err)
	}
	return rdb, nil
}

func (a *app) openUserStore(ctx context.Context) (gatekeeper.UserProvider, error) {
	switch a.cfg.Database.Type {
	case "postgres":
		store, err := userstore.NewPostgres(ctx, a.cfg.Database.Postgres.URL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if a.cfg.Database.Postgres.MigrateOnStart {
			if err := store.Migrate(ctx); err != nil {
				return nil, err
			}
			a.logger.Info("database migrations applied")
		}
		return store, nil
	default:
		a.logger.Warn("using in-memory user store; accounts are lost on restart")
		return userstore.NewMemory(), nil
	}
}

func (a *app) openAuditSink() (gatekeeper.AuditSink, error) {
	if !a.cfg.Audit.Enabled {
		return nil, nil
	}
	switch a.cfg.Audit.Sink {
	case "nats":
		ncfg := natssink.DefaultConfig()
		ncfg.URL = a.cfg.Audit.NATS.URL
		ncfg.Subject = a.cfg.Audit.NATS.Subject
		ncfg.Name = a.cfg.Audit.NATS.Name
		sink, err := natssink.Connect(ncfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = sink.Close() })
		return sink, nil
	default:
		return gatekeeper.NewSlogSink(a.logger.With("component", "audit")), nil
	}
}

// Run serves until ctx is cancelled, then shuts down within the configured timeout.
func (a *app) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("gatekeeper listening", "addr", a.server.Addr, "version", version)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
