package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/isscrewhealth/internal/adapters/cache"
	"github.com/zatekoja/isscrewhealth/internal/adapters/database"
	"github.com/zatekoja/isscrewhealth/internal/adapters/events"
	"github.com/zatekoja/isscrewhealth/internal/adapters/filesystem"
	"github.com/zatekoja/isscrewhealth/internal/adapters/providers/mlpredictor"
	"github.com/zatekoja/isscrewhealth/internal/api/handlers"
	"github.com/zatekoja/isscrewhealth/internal/api/middleware"
	"github.com/zatekoja/isscrewhealth/internal/api/routes"
	"github.com/zatekoja/isscrewhealth/internal/application/services"
	"github.com/zatekoja/isscrewhealth/internal/domain/providers"
	"github.com/zatekoja/isscrewhealth/internal/domain/repositories"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/clients/redis"
	"github.com/zatekoja/isscrewhealth/internal/infrastructure/observability"
	"github.com/zatekoja/isscrewhealth/migrations"
	"github.com/zatekoja/isscrewhealth/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Environment, cfg.Log.Level)

	log.Info().
		Str("service", cfg.OTEL.ServiceName).
		Str("version", cfg.OTEL.ServiceVersion).
		Str("env", cfg.Log.Environment).
		Str("ml_mode", cfg.MLPredictor.Mode).
		Msg("Starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize metrics")
	}

	// Prediction history needs Postgres; predictions still work without it
	var predictionRepo repositories.PredictionRepository
	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Warn().Err(err).Msg("PostgreSQL unavailable; prediction history disabled")
		} else {
			defer pgClient.Close()
			adapter := database.NewPredictionAdapter(pgClient, metrics)
			if err := adapter.EnsureSchema(ctx, migrations.FS); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply database migrations")
			}
			predictionRepo = adapter
		}
	}

	var cacheProvider providers.CacheProvider
	var eventBus *events.RedisEventBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; running without cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient.Client(), cache.DefaultKeyPrefix)
			eventBus = events.NewRedisEventBus(redisClient.Client())
		}
	}

	mlPredictor, err := mlpredictor.NewHealthPredictor(&cfg.MLPredictor)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure ML predictor")
	}

	opts := services.PredictionServiceOptions{
		ML:       mlPredictor,
		Cache:    cacheProvider,
		Repo:     predictionRepo,
		Metrics:  metrics,
		CacheTTL: cfg.Cache.PredictionTTL,
		Mode:     cfg.MLPredictor.Mode,
	}
	// Assigned only when set so the interface does not hold a typed nil
	if eventBus != nil {
		opts.Events = eventBus
	}
	predictionService := services.NewPredictionService(opts)
	datasetService := services.NewDatasetService(filesystem.NewDatasetAdapter(cfg.Datasets.Dir))

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, cfg.Cache.DatasetTTL)
	}

	router := routes.NewRouter(
		handlers.NewPredictionHandler(predictionService),
		handlers.NewDatasetHandler(datasetService),
		cacheMiddleware,
		metrics,
		cfg.Server.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	if eventBus != nil {
		if err := eventBus.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing event bus")
		}
	}

	log.Info().Msg("Server stopped")
}
