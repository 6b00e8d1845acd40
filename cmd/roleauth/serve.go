package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	auth "github.com/goliatone/go-role-auth"
	"github.com/goliatone/go-role-auth/activitymap"
	"github.com/goliatone/go-role-auth/cache"
	"github.com/goliatone/go-role-auth/config"
	"github.com/goliatone/go-role-auth/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

type dependencies struct {
	db            *bun.DB
	manager       *repository.Manager
	redis         *redis.Client
	lockoutCache  *cache.LockoutCache
	authenticator *auth.RoleAuthenticator
	logger        auth.Logger
}

func newDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	authLogger := auth.NewSlogLogger(logger)

	db, err := repository.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Debug || logger.Enabled(ctx, slog.LevelDebug) {
		repository.EnableQueryLog(db, cfg.Database.Debug)
	}

	if err := repository.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	manager := repository.NewRepositoryManager(db)
	manager.MustValidate()

	deps := &dependencies{
		db:      db,
		manager: manager,
		logger:  authLogger,
	}

	var lockouts auth.LockoutStore = manager.Lockouts()
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.redis = client
		deps.lockoutCache = cache.NewLockoutCache(client, lockouts, cfg.Redis.LockoutTTL, authLogger)
		lockouts = deps.lockoutCache
	}

	table, err := auth.NewRoleTable(manager.Descriptors(cfg.Secrets(), cfg.TTLs())...)
	if err != nil {
		deps.Close()
		return nil, err
	}

	gate := auth.NewLockoutGate(lockouts).WithLogger(authLogger)
	deps.authenticator = auth.NewRoleAuthenticator(table, auth.NewClaimsCodec(auth.WithCodecLogger(authLogger)), gate).
		WithLogger(authLogger)

	return deps, nil
}

// updateLockout runs change against a transaction bound lockout repository
// and drops the cached entry of role before committing. A failed
// invalidation rolls the change back so redis never serves the old record.
func (d *dependencies) updateLockout(ctx context.Context, role auth.Role, change func(context.Context, *repository.LockoutRepository) error) error {
	return d.manager.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := change(ctx, d.manager.Lockouts().WithTx(tx)); err != nil {
			return err
		}
		if d.lockoutCache == nil {
			return nil
		}
		if err := d.lockoutCache.Invalidate(ctx, role); err != nil {
			d.logger.Warn("lockout cache invalidate failed, rolling back", "role", role, "error", err)
			return err
		}
		return nil
	})
}

func (d *dependencies) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

func newApp(cfg *config.Config, deps *dependencies) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		AppName:               appName,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: true,
	})

	activity := auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		n := activitymap.Normalize(event)
		deps.logger.Debug("activity", "verb", n.Verb, "actor", n.ActorID, "object", n.ObjectID, "metadata", n.Metadata)
		return nil
	})
	deps.authenticator.WithActivitySink(activity)

	if cfg.Server.Metrics {
		registry := prometheus.NewRegistry()
		observer := auth.NewPrometheusObserver()
		if err := observer.Register(registry); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		deps.authenticator.WithObserver(observer)
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	login := auth.NewLoginService(deps.authenticator, auth.BcryptPasswords{}).
		WithLogger(deps.logger).
		WithActivitySink(activity)

	auth.RegisterAuthRoutes(app.Group(cfg.Server.Prefix),
		auth.WithAuthenticator(deps.authenticator),
		auth.WithLoginService(login),
		auth.WithControllerLogger(deps.logger),
	)

	return app, nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	app, err := newApp(cfg, deps)
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "version", Version)
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.Shutdown()
	}
}
