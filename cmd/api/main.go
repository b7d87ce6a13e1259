package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sentiq-platform/sentiq/internal/api"
	"github.com/sentiq-platform/sentiq/internal/config"
	"github.com/sentiq-platform/sentiq/internal/database"
	"github.com/sentiq-platform/sentiq/internal/events"
	"github.com/sentiq-platform/sentiq/internal/inference"
	mw "github.com/sentiq-platform/sentiq/internal/middleware"
	"github.com/sentiq-platform/sentiq/internal/quota"
	iredis "github.com/sentiq-platform/sentiq/internal/redis"
	"github.com/sentiq-platform/sentiq/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Migrations
	if cfg.DB.AutoMigrate {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Events (optional)
	var (
		publisher     *events.Publisher
		eventsHealthy func() bool
	)
	if cfg.NATS.URL != "" {
		eventsClient, err := events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
		publisher = events.NewPublisher(eventsClient.JetStream())
		eventsHealthy = eventsClient.Healthy
	}

	// Abuse gate
	violationRepo := quota.NewViolationRepository(pool)
	sinks := []quota.ViolationSink{violationRepo}
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	quotaStore := quota.NewRedisStore(redisClient, cfg.Abuse.Collection)
	gate := quota.NewGate(quotaStore, cfg.Abuse, quota.FanoutSink(sinks...))
	quotaHandler := quota.NewHandler(gate, violationRepo)

	// Inference
	inferenceRepo := inference.NewRepository(pool)
	var inferencePublisher inference.EventPublisher
	if publisher != nil {
		inferencePublisher = publisher
	}
	inferenceSvc := inference.NewService(inferenceRepo, inference.NewLexiconClassifier(),
		inferencePublisher, cfg.App, cfg.Inference)
	inferenceHandler := inference.NewHandler(inferenceSvc)

	// Router
	router := api.NewRouter(pool, redisClient, api.RouterConfig{
		App:                cfg.App,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, api.HandlerSet{
		Predict:        inferenceHandler.Predict,
		ListInferences: inferenceHandler.List,

		QuotaStatus:    quotaHandler.Status,
		ListViolations: quotaHandler.ListViolations,

		QuotaMiddleware:  quota.Middleware(gate),
		APIKeyMiddleware: mw.APIKey(cfg.Dash.APIKey),

		EventsHealthy: eventsHealthy,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
