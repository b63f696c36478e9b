// Package main is the entry point for the feed validation API server.
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

	"feedvalidator/internal/core/apperror"
	"feedvalidator/internal/feed"
	"feedvalidator/internal/infrastructure/cache"
	v1 "feedvalidator/internal/infrastructure/http/v1"
	"feedvalidator/internal/schema/gtfs"
	"feedvalidator/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting feed validator server")

	// --- Schema ---
	schemaFile := getEnv("SCHEMA_FILE", "")
	plan, err := gtfs.Load(ctx, schemaFile)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			log.Fatalw("failed to build schema", "code", appErr.Code, "details", appErr.Details)
		}
		log.Fatalw("failed to build schema", "error", err)
	}
	for _, w := range plan.Schema.Warnings() {
		log.Warnw("schema warning", "warning", w)
	}
	log.Infow("schema loaded",
		"source", schemaSource(schemaFile),
		"tables", len(plan.Tables),
		"foreign_keys", len(plan.ForeignKeys),
	)

	// --- Validator ---
	cfg := feed.DefaultConfig()
	if workers := getEnvInt("VALIDATOR_WORKERS", 0); workers > 0 {
		cfg.Workers = workers
	}
	cfg.MaxNoticesPerCode = getEnvInt("MAX_NOTICES_PER_CODE", 0)

	validator := feed.NewValidator(plan, cfg)
	gtfs.Register(validator.Registry())

	// --- Report store ---
	reports := cache.NewReportStore(
		getEnvDuration("REPORT_TTL", time.Hour),
		getEnvInt("REPORT_CACHE_SIZE", 100),
	)
	reports.OnEvict(func(runID, reason string) {
		log.Debugw("report evicted", "run_id", runID, "reason", reason)
	})
	reports.Start(ctx, time.Minute)
	defer reports.Stop()

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:         log,
		Validator:      validator,
		Workers:        cfg.Workers,
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 256<<20)),
		Reports:        reports,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      getEnvDuration("WRITE_TIMEOUT", 5*time.Minute),
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port, "workers", cfg.Workers)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Running validations get 30 seconds to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
	_ = log.Sync()
}

func schemaSource(path string) string {
	if path == "" {
		return "built-in"
	}
	return path
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
