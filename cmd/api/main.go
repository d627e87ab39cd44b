package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/huseinhashi/academic-record/internal/api"
	"github.com/huseinhashi/academic-record/internal/cache"
	"github.com/huseinhashi/academic-record/internal/config"
	"github.com/huseinhashi/academic-record/internal/db"
	"github.com/huseinhashi/academic-record/internal/logger"
	"github.com/huseinhashi/academic-record/internal/records"
	"github.com/huseinhashi/academic-record/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting academic record API server")

	// Initialize MongoDB and the record repository
	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer database.Client().Disconnect(context.Background())

	repo := db.NewRepository(database)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
	if err := repo.EnsureIndexes(ctx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to ensure record indexes")
	}
	cancel()

	// Initialize the blob store client. Constructed here and injected;
	// never accessed as global state.
	blobs, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}

	// Initialize the fingerprint-check cache. Optional: the service runs
	// cacheless if redis is unavailable.
	var checkCache *cache.CheckCache
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without fingerprint-check cache")
	} else {
		defer redisClient.Close()
		checkCache = cache.NewCheckCache(cache.NewRedisStore(redisClient), cfg.Records.CheckCacheTTL)
	}

	// Wire the workflow service and HTTP handlers
	svc := records.NewService(repo, blobs, checkCache, cfg)
	handler := api.NewHandler(svc, cfg)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(api.CORSMiddleware())
	router.Use(api.LoggingMiddleware())
	router.Use(api.RecoveryMiddleware())

	// Setup routes
	api.SetupRoutes(router, handler, cfg.Auth.JWTSecret)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create context for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
