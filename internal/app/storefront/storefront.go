// Package storefront собирает HTTP-сервер витрины подписок: хранилища,
// сервисы, маршруты и фоновый планировщик счетов.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/subscribepro/internal/cache"
	"github.com/magabrotheeeer/subscribepro/internal/config"
	"github.com/magabrotheeeer/subscribepro/internal/fixtures"
	"github.com/magabrotheeeer/subscribepro/internal/http/handlers/health"
	"github.com/magabrotheeeer/subscribepro/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subscribepro/internal/lib/jwt"
	"github.com/magabrotheeeer/subscribepro/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/migrations"
	"github.com/magabrotheeeer/subscribepro/internal/services/accounts"
	"github.com/magabrotheeeer/subscribepro/internal/services/catalog"
	"github.com/magabrotheeeer/subscribepro/internal/services/notify"
	"github.com/magabrotheeeer/subscribepro/internal/services/scheduler"
	"github.com/magabrotheeeer/subscribepro/internal/services/session"
	"github.com/magabrotheeeer/subscribepro/internal/services/subscription"
	"github.com/magabrotheeeer/subscribepro/internal/storage/kv"
	"github.com/magabrotheeeer/subscribepro/internal/storage/memory"
	"github.com/magabrotheeeer/subscribepro/internal/storage/repository"
	"github.com/magabrotheeeer/subscribepro/internal/storage/state"
)

const catalogCacheSize = 128

// Storage — хранилище каталога, подписок и счетов.
type Storage interface {
	catalog.Repository
	subscription.Repository
	scheduler.Repository
	accounts.SubscriptionCounter
	Seed(ctx context.Context, seed *fixtures.Seed) error
}

// Notifier публикует письма подтверждения и счета.
type Notifier interface {
	session.Notifier
	scheduler.Notifier
}

// App — HTTP-сервер витрины вместе с фоновыми задачами.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	scheduler *scheduler.Service
	closers   []func() error
	checks    map[string]health.Check
}

// New создает приложение по конфигу. Пустые адреса Postgres, Redis и RabbitMQ
// заменяются реализациями в памяти процесса.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "storefront.New"
	app := &App{logger: logger, checks: make(map[string]health.Check)}

	seed, err := fixtures.Load(cfg.FixturesPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := app.openStorage(cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Seed(ctx, seed); err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		store        kv.Store
		lockouts     session.LockoutStore
		catalogCache catalog.Cache
	)
	if cfg.AddressRedis != "" {
		client, err := kv.NewRedisClient(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.closers = append(app.closers, client.Close)
		app.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		store = kv.NewRedis(client, "subscribepro")
		lockouts = state.NewRedisLockouts(client)
		catalogCache = cache.NewRedis(client)
		logger.Info("session state in redis", slog.String("address", cfg.AddressRedis))
	} else {
		store = kv.NewMemory()
		lockouts = state.NewMemoryLockouts()
		catalogCache = cache.NewLRU(catalogCacheSize, cfg.CatalogCacheTTL)
		logger.Info("session state in memory")
	}

	users := state.NewUsers(store)
	seeded, err := users.SeedIfEmpty(ctx, seed.Users)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug("user directory ready", slog.Bool("seeded", seeded))

	notifier, err := app.openNotifier(ctx, cfg, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pool, err := session.NewPool(session.Deps{
		Users:            users,
		Sessions:         state.NewSessions(store),
		Lockouts:         lockouts,
		Notifier:         notifier,
		Latency:          cfg.Auth.SimulatedLatency,
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		AutoVerify:       cfg.Auth.AutoVerify,
		Log:              logger.With(slog.String("component", "session")),
	}, cfg.Auth.SessionPoolSize)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limiter, err := middlewarectx.NewRateLimiter(cfg.Auth.LoginRatePerSecond, cfg.Auth.LoginBurst)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	catalogService := catalog.New(db, catalogCache, cfg.CatalogCacheTTL, logger.With(slog.String("component", "catalog")))
	subscriptionService := subscription.New(db, catalogService, logger.With(slog.String("component", "subscription")))
	app.scheduler = scheduler.New(db, users, notifier, cfg.Billing.Interval, logger.With(slog.String("component", "scheduler")))

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:          session.NewAuth(pool, tokens, logger),
		Tokens:        tokens,
		Catalog:       catalogService,
		Subscriptions: subscriptionService,
		Accounts:      accounts.New(users, db, logger),
		AuthLimiter:   limiter,
		Health:        app.checks,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) openStorage(cfg *config.Config) (Storage, error) {
	if cfg.StorageConnectionString == "" {
		a.logger.Info("catalog storage in memory")
		return memory.New(), nil
	}
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.checks["postgres"] = db.DB.PingContext
	version, err := migrations.Run(db.DB, cfg.MigrationsPath)
	if err != nil {
		return nil, err
	}
	if err := repository.CheckDatabaseReady(db); err != nil {
		return nil, err
	}
	a.logger.Info("catalog storage in postgres", slog.Uint64("schema_version", uint64(version)))
	return db, nil
}

func (a *App) openNotifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Notifier, error) {
	log := logger.With(slog.String("component", "notify"))
	if cfg.RabbitMQ.URL == "" {
		logger.Info("rabbitmq is not configured, notifications are logged only")
		return notify.NewNoop(cfg.PublicBaseURL, log), nil
	}
	topo := rabbitmq.NotificationTopology(cfg.RabbitMQ)
	conn, err := rabbitmq.Dial(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)
	ch, err := rabbitmq.Open(conn, topo)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ch.Close)
	log.Info("rabbitmq connected", slog.String("exchange", topo.Exchange))
	return notify.NewRabbit(rabbitmq.NewPublisher(ch, topo.Exchange), cfg.PublicBaseURL, log), nil
}

// close освобождает ресурсы в обратном порядке открытия.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}

// Run запускает планировщик и HTTP-сервер и останавливает их при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	schedCtx, stopScheduler := context.WithCancel(ctx)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		a.scheduler.Run(schedCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	stopScheduler()
	<-schedDone
	a.close()
	return err
}
