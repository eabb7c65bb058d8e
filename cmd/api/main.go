package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/nordicfin/relion-bridge/internal/infra/blob"
	"github.com/nordicfin/relion-bridge/internal/infra/gateway/d365"
	"github.com/nordicfin/relion-bridge/internal/infra/gateway/relionapi"
	"github.com/nordicfin/relion-bridge/internal/infra/postgres"
	infraredis "github.com/nordicfin/relion-bridge/internal/infra/redis"
	"github.com/nordicfin/relion-bridge/internal/mapping"
	"github.com/nordicfin/relion-bridge/internal/transport/httpapi"
	"github.com/nordicfin/relion-bridge/internal/transport/httpapi/handler"
	"github.com/nordicfin/relion-bridge/internal/transport/httpapi/middleware"
	"github.com/nordicfin/relion-bridge/internal/workflow"
	"github.com/nordicfin/relion-bridge/pkg/config"
	"github.com/nordicfin/relion-bridge/pkg/logger"
)

func main() {
	// Create context that listens for termination signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env if present (development convenience, no-op in production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewDefault(cfg.Env)
	log.Info("Starting Relion bridge",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Initialize database connection pool
	db, err := postgres.NewPool(ctx, postgres.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("Database connection established")

	// Initialize Redis client for lookup caching
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established")

	// Initialize blob payload store
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Error("Failed to load AWS configuration", "error", err)
		os.Exit(1)
	}
	payloadStore := blob.NewStore(s3.NewFromConfig(awsCfg), cfg.PayloadBucket, log)

	// Initialize gateway clients
	d365Client := d365.NewClient(cfg.D365BaseURL, d365.StaticToken(cfg.D365Token), log)
	relionClient := relionapi.NewClient(cfg.RelionBaseURL, cfg.RelionAPIKey, log)

	// Initialize repositories
	errorRepo := postgres.NewErrorRepository(db.Pool)
	runRepo := postgres.NewRunRepository(db.Pool)

	// Cached lookup decorators over the D365 mapping entities
	lookupCache := infraredis.NewCache(redisClient, log)
	lookups := infraredis.NewCachedLookups(lookupCache, d365Client, d365Client, d365Client)

	// Line mapping engine
	engine := mapping.NewEngine(lookups, lookups, lookups, relionClient, errorRepo, log)
	log.Info("Line mapping engine initialized")

	// Import orchestrator
	orchestrator := workflow.NewOrchestrator(
		workflow.DefaultConfig(),
		d365Client,
		engine,
		d365Client,
		runRepo,
		log,
	)
	log.Info("Import orchestrator initialized")

	// Initialize HTTP handlers
	jwtSvc := middleware.NewJWTService(cfg.JWTSecret)
	importHandler := handler.NewImportHandler(orchestrator, payloadStore, relionClient, log)
	healthHandler := handler.NewHealthHandler(
		handler.PingFunc(db.Health),
		handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	)

	// Create HTTP router
	r := httpapi.NewRouter(httpapi.Config{
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
		ImportHandler:  importHandler,
		HealthHandler:  healthHandler,
		JWTMiddleware:  middleware.JWTMiddleware(jwtSvc),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for termination signal
	<-ctx.Done()
	log.Info("Shutdown signal received")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("Server stopped")
}
