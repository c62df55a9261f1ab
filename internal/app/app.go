package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	api "github.com/avbelov/url-shortener/internal/api/http"
	"github.com/avbelov/url-shortener/internal/cache"
	"github.com/avbelov/url-shortener/internal/config"
	"github.com/avbelov/url-shortener/internal/database/postgres"
	"github.com/avbelov/url-shortener/internal/messaging"
	"github.com/avbelov/url-shortener/internal/ratelimit"
	"github.com/avbelov/url-shortener/internal/resilience"
	"github.com/avbelov/url-shortener/internal/service"
	"github.com/avbelov/url-shortener/internal/tracing"
	pkgpostgres "github.com/avbelov/url-shortener/pkg/postgres"
	"github.com/avbelov/url-shortener/pkg/shortcode"
)

// setupLogger builds the request logger for the given environment. Production
// logs JSON at info level, everything else logs human-readable debug output.
func setupLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if env == config.EnvProd {
		opts = httplog.Options{
			LogLevel: slog.LevelInfo,
			JSON:     true,
		}
	}

	return httplog.NewLogger("url-shortener", opts)
}

// Run wires the storage, cache, messaging and HTTP layers together and blocks
// until ctx is cancelled or a component fails.
func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := setupLogger(cfg.Env)

	db, err := pkgpostgres.New(
		ctx,
		cfg.Postgres.DSN(),
		pkgpostgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pkgpostgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pkgpostgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pkgpostgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pkgpostgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
	}

	nc, js, err := messaging.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to nats: %w", op, err)
	}
	defer nc.Drain()

	dbPipeline := resilience.New("database", resilience.Config{}, logger.Logger)
	consumerPipeline := resilience.New("click-consumer", resilience.Config{}, logger.Logger)

	urlRepo := resilience.NewURLRepository(postgres.NewURLRepository(db), dbPipeline)
	cacheStore := cache.NewStore(rdb, &cache.Metrics{})
	producer := messaging.NewClickProducer(js)
	tracer := tracing.New(nil)

	urlSvc := service.NewURLService(
		urlRepo,
		cacheStore,
		producer,
		shortcode.NewGenerator(cfg.ShortCodeLength),
		tracer,
		logger.Logger,
		cfg.CacheTTL,
	)
	statsSvc := service.NewStatsService(urlRepo, cacheStore, logger.Logger, cfg.CacheTTL)
	clickSvc := service.NewClickHandlerService(urlRepo, cacheStore)

	consumer := messaging.NewClickConsumer(js, clickSvc, consumerPipeline, logger.Logger)

	limiter := ratelimit.New(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, urlSvc, statsSvc, limiter, cfg.BaseURL),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Run(ctx)
	})

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
