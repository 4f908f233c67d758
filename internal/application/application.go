package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"tranquiltaiwan/internal/config"
	"tranquiltaiwan/internal/domain/entity"
	"tranquiltaiwan/internal/domain/service/livability"
	"tranquiltaiwan/internal/infrastructure/airquality"
	"tranquiltaiwan/internal/infrastructure/collector"
	"tranquiltaiwan/internal/infrastructure/geocode"
	"tranquiltaiwan/internal/infrastructure/notifier"
	"tranquiltaiwan/internal/infrastructure/overpass"
	"tranquiltaiwan/internal/infrastructure/persistence"
	"tranquiltaiwan/internal/infrastructure/transit"
	"tranquiltaiwan/internal/observability"
	"tranquiltaiwan/internal/server"
	"tranquiltaiwan/internal/worker"
	"tranquiltaiwan/pkg/application/connectors"
	"tranquiltaiwan/pkg/application/modules"
	"tranquiltaiwan/pkg/httpx"
	"tranquiltaiwan/pkg/logx"
	"tranquiltaiwan/pkg/middlewarex"
)

func Run(ctx context.Context, log *slog.Logger) error {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	log = logx.NewLogger(logx.ParseLevel(cfg.Server.LogLevel), cfg.Server.LogFormat)
	slog.SetDefault(log)

	// 2. Database
	pg := &connectors.Postgres{
		DSN:             cfg.Postgres.DSN,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	}
	db := pg.Client(ctx)
	defer pg.Close(ctx)

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if err := persistence.Bootstrap(ctx, db); err != nil {
		return fmt.Errorf("schema bootstrap: %w", err)
	}
	log.Info("database connection OK")

	// 3. Redis
	rd := &connectors.Redis{
		Username:           cfg.Redis.Username,
		Password:           cfg.Redis.Password,
		Address:            cfg.Redis.Address,
		DatabaseNumber:     cfg.Redis.DatabaseNumber,
		PoolSize:           cfg.Redis.PoolSize,
		MinIdleConnections: cfg.Redis.MinIdleConnections,
		MaxIdleConnections: cfg.Redis.MaxIdleConnections,
	}
	rdb := rd.Client(ctx)
	defer rd.Close(ctx)

	// 4. Repositories
	metricSet := observability.NewMetrics()

	addressRepo := persistence.NewAddressRepository(db)
	scoreRepo := persistence.NewScoreRepository(db)
	reportRepo := persistence.NewReportRepository(db)
	userRepo := persistence.NewUserRepository(db)

	// 5. Upstream providers
	masker := logx.NewSensitiveDataMasker()
	logging := func(next http.RoundTripper) http.RoundTripper {
		return httpx.NewLoggingRoundTripper(next,
			httpx.WithLogFieldMaxLen(cfg.Server.LogFieldMaxLen),
			httpx.WithSensitiveDataMasker(masker),
		)
	}

	// The retry transport sits outside the rate limiter so that retried
	// attempts also respect the one-request-per-second usage policy.
	nominatimHTTP := &http.Client{
		Timeout: cfg.Providers.Nominatim.Timeout,
		Transport: httpx.NewRetryRoundTripper(
			httpx.NewRateLimitRoundTripper(logging(http.DefaultTransport), cfg.Providers.Nominatim.MinInterval),
			2, cfg.Providers.Nominatim.MinInterval, 5*time.Second,
		),
	}
	nominatim := geocode.NewClient(
		cfg.Providers.Nominatim.BaseURL,
		cfg.Providers.Nominatim.UserAgent,
		nominatimHTTP,
	).WithMetrics(metricSet)
	geocoder := geocode.NewCachedGeocoder(nominatim, rdb, cfg.Providers.Nominatim.CacheTTL).
		WithMetrics(metricSet)

	// Overpass rotates between instances itself, so no retry transport here;
	// the limiter paces the concurrent per-concern queries.
	overpassHTTP := &http.Client{
		Timeout:   cfg.Providers.Overpass.Timeout,
		Transport: httpx.NewRateLimitRoundTripper(logging(http.DefaultTransport), cfg.Providers.Overpass.MinInterval),
	}
	overpassClient := overpass.NewClient(
		cfg.Providers.Overpass.BaseURLs,
		overpassHTTP,
		cfg.Providers.Overpass.MaxAttempts,
		cfg.Providers.Overpass.RetryDelay,
		cfg.Providers.Overpass.MaxRetryDelay,
	).WithMetrics(metricSet)

	airHTTP := &http.Client{
		Timeout:   cfg.Providers.Air.Timeout,
		Transport: httpx.NewRetryRoundTripper(logging(http.DefaultTransport), 3, time.Second, 10*time.Second),
	}
	airClient := airquality.NewClient(
		cfg.Providers.Air.BaseURL,
		cfg.Providers.Air.APIKey,
		airHTTP,
	).WithMetrics(metricSet)

	tokenHTTP := &http.Client{
		Timeout:   cfg.Providers.Transit.Timeout,
		Transport: logging(http.DefaultTransport),
	}
	tdxAuth := transit.NewAuthenticator(
		cfg.Providers.Transit.TokenURL,
		cfg.Providers.Transit.ClientID,
		cfg.Providers.Transit.ClientSecret,
		tokenHTTP,
	)
	transitHTTP := &http.Client{
		Timeout: cfg.Providers.Transit.Timeout,
		Transport: httpx.NewAuthBearerRoundTripper(
			httpx.NewRetryRoundTripper(logging(http.DefaultTransport), 3, time.Second, 10*time.Second),
			tdxAuth,
		),
	}
	transitClient := transit.NewClient(cfg.Providers.Transit.BaseURL, transitHTTP).
		WithMetrics(metricSet)

	envCollector := collector.NewCollector(overpassClient, airClient, transitClient).
		WithCache(rdb, collector.TTLs{
			Overpass: cfg.Providers.Overpass.CacheTTL,
			Air:      cfg.Providers.Air.CacheTTL,
			Transit:  cfg.Providers.Transit.CacheTTL,
		}).
		WithMetrics(metricSet)

	// 6. Task queue
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DatabaseNumber,
	})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			log.Error("asynq client close", logx.Error(err))
		}
	}()

	enqueuer := worker.NewEnqueuer(asynqClient, cfg.Worker.QueueName).WithMetrics(metricSet)

	// 7. Scoring service
	svc := livability.NewService(geocoder, envCollector, addressRepo, scoreRepo, reportRepo, userRepo, enqueuer).
		WithScoreTTL(cfg.Worker.ScoreTTL).
		WithMetrics(metricSet)

	// 8. Background workers
	g, ctx := errgroup.WithContext(ctx)

	handlers := worker.NewHandlers(svc).WithMetrics(metricSet)
	modules.AsynqServer{
		RedisUsername: cfg.Redis.Username,
		RedisPassword: cfg.Redis.Password,
		RedisAddress:  cfg.Redis.Address,
		RedisDB:       cfg.Redis.DatabaseNumber,
		Concurrency:   cfg.Worker.Concurrency,
	}.Run(ctx, g,
		modules.AsynqQueues{cfg.Worker.QueueName: 1},
		modules.AsynqHandler{Pattern: worker.TaskScoreRecalculate, Handle: handlers.HandleRecalculate},
	)

	summaries := make(chan entity.SweepSummary, 8)

	sweeper := worker.NewSweeper(svc).
		WithInterval(cfg.Worker.SweepInterval).
		WithBatchSize(cfg.Worker.SweepBatchSize).
		WithSummaries(summaries).
		WithMetrics(metricSet)

	g.Go(func() error {
		defer close(summaries)

		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("sweeper.Run: %w", err)
		}

		return nil
	})

	if cfg.Bot.Token != "" {
		alertBot, err := notifier.NewTelegramBot(cfg.Bot.Token, cfg.Bot.ChatID)
		if err != nil {
			return fmt.Errorf("notifier bot: %w", err)
		}

		g.Go(func() error {
			if err := alertBot.Run(ctx, summaries); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("alertBot.Run: %w", err)
			}

			return nil
		})

		log.Info("sweep notifications enabled", slog.Int64("chat_id", cfg.Bot.ChatID))
	}

	// 9. HTTP API
	router := chi.NewRouter()
	router.Use(middlewarex.TraceID)
	router.Use(middlewarex.Logger)
	router.Use(middlewarex.Recovery)
	router.Use(middlewarex.UserID)
	router.Use(middlewarex.RequestLogging(masker, cfg.Server.LogFieldMaxLen))
	router.Use(middlewarex.ResponseLogging(masker, cfg.Server.LogFieldMaxLen))

	server.NewServer(
		server.NewScoreServer(svc),
		server.NewReportServer(svc),
		server.NewGeocodeServer(svc),
	).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	modules.HTTPServer{ShutdownTimeout: cfg.Server.ShutdownTimeout}.Run(ctx, g, httpServer)
	modules.MetricServer{ListenAddress: cfg.Server.MetricListenAddress}.Run(ctx, g)
	modules.ProbeServer{
		Name:          cfg.Server.Name,
		Version:       cfg.Server.Version,
		ListenAddress: cfg.Server.ProbeListenAddress,
	}.Run(ctx, g)

	log.Info("application started",
		slog.String("listen", cfg.Server.ListenAddress),
		slog.String("metrics", cfg.Server.MetricListenAddress),
		slog.String("probes", cfg.Server.ProbeListenAddress),
	)

	return g.Wait()
}
