package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"jewelry-catalog/internal/config"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/platform/cache"
	"jewelry-catalog/internal/platform/database"
	"jewelry-catalog/internal/platform/server"
	"jewelry-catalog/internal/platform/storage"
	"jewelry-catalog/internal/services"
	"jewelry-catalog/internal/web/handlers"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "jewelry-catalog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	obsConfig := observability.LoadConfig()
	logger := observability.NewLogger(obsConfig)
	ctx := context.Background()

	if envErr != nil {
		logger.Info(ctx).Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	provider, err := observability.NewProvider(ctx, obsConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(logger.OTELErrorHandler()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx).Err(err).Msg("telemetry shutdown failed")
		}
	}()

	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	applied, err := database.RunMigrations(ctx, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info(ctx).Strs("migrations", applied).Msg("database migrations applied")
	}

	storageClient, err := storage.NewMinIOClient(ctx, cfg.Storage)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to storage: %w", err)
	}

	var redisClient *cache.RedisClient
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Cache)
		if err != nil {
			// listings fall back to the database
			logger.Warn(ctx).Err(err).Str("address", cfg.Cache.Address).Msg("cache unavailable, continuing without it")
			redisClient = nil
		}
	}

	container, err := services.NewContainer(cfg, db, storageClient, redisClient, logger)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize services container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error(context.Background()).Err(err).Msg("failed to close resources")
		}
	}()

	httpMetrics, err := observability.NewHTTPMetrics(provider.Meter("jewelry-catalog/http"))
	if err != nil {
		return fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	handler := handlers.NewWithContainer(container, httpMetrics)
	srv := server.New(cfg, handler.Routes())

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go container.UploadSessions().Run(sweepCtx, sweepInterval)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info(ctx).Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-quit:
		logger.Info(ctx).Str("signal", sig.String()).Msg("Server shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info(ctx).Msg("Server exited")
	return nil
}
