package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"feedpipe/internal/config"
	controlhttp "feedpipe/internal/handler/http/control"
	"feedpipe/internal/infra/db"
	workerPkg "feedpipe/internal/infra/worker"
	"feedpipe/internal/pipeline"
)

func main() {
	logger := initLogger()
	otel.SetTracerProvider(sdktrace.NewTracerProvider())

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	cfg, warnings := config.LoadPipelineConfig()
	for _, w := range warnings {
		logger.Warn("pipeline configuration warning", slog.String("warning", w))
	}
	logger.Info("pipeline configuration loaded",
		slog.Duration("fetch_default_interval", cfg.FetchDefaultInterval),
		slog.Int("fetch_concurrency", cfg.FetchConcurrency),
		slog.Int("per_host_concurrency", cfg.PerHostConcurrency),
		slog.Duration("fetch_timeout", cfg.FetchTimeout),
		slog.Duration("scheduler_tick", cfg.SchedulerTick),
		slog.Int("scheduler_batch_size", cfg.SchedulerBatchSize),
		slog.String("extraction_engine", cfg.ExtractionEngine),
		slog.Duration("shutdown_drain", cfg.ShutdownDrain))

	pipe, err := pipeline.New(database, cfg)
	if err != nil {
		logger.Error("failed to construct pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", envPort("HEALTH_PORT", 9091)), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	metricsServer := startMetricsServer(ctx, logger)
	defer func() { _ = metricsServer.Close() }()

	controlServer := startControlServer(ctx, logger, pipe)
	defer func() { _ = controlServer.Close() }()

	pipe.Start(ctx)
	healthServer.SetReady(true)
	logger.Info("pipeline started",
		slog.Int("consumer_pool_size", cfg.ConsumerPoolSize()))

	<-ctx.Done()
	logger.Info("shutdown signal received, draining pipeline")
	healthServer.SetReady(false)
	pipe.Shutdown()
	logger.Info("pipeline stopped")
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies the schema
// migration, idempotent across restarts.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// startControlServer serves the control-plane HTTP routes.
func startControlServer(ctx context.Context, logger *slog.Logger, pipe *pipeline.Pipeline) *http.Server {
	mux := http.NewServeMux()
	controlhttp.New(pipe.Control).Register(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", envPort("CONTROL_PORT", 8090)),
		Handler:      wireControlMiddleware(ctx, mux, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("control server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control server failed", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("control server shutdown failed", slog.Any("error", err))
		}
	}()

	return server
}

func envPort(name string, fallback int) int {
	val := os.Getenv(name)
	if val == "" {
		return fallback
	}
	var port int
	if _, err := fmt.Sscanf(val, "%d", &port); err != nil || port <= 0 || port > 65535 {
		return fallback
	}
	return port
}
