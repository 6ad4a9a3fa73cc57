package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"face-gallery/internal/config"
	"face-gallery/internal/observability"
	"face-gallery/internal/platform/server"
	"face-gallery/internal/services"
	"face-gallery/internal/web/handlers"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	obsCfg := observability.LoadConfig()
	obsCfg.LogLevel = cfg.Logging.Level
	obsCfg.LogFormat = cfg.Logging.Format
	logger := observability.NewLogger(obsCfg)

	ctx := context.Background()

	provider, err := observability.NewProvider(ctx, obsCfg)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to initialize OpenTelemetry")
	}
	otel.SetErrorHandler(otel.ErrorHandlerFunc(logger.OTELErrorHandler()))

	httpMetrics, err := observability.NewHTTPMetrics(observability.GetMeter())
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to create HTTP metrics")
	}

	// Initialize dependency injection container
	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx).Err(err).Msg("Failed to initialize services container")
	}

	handler := handlers.NewWithContainer(container, httpMetrics)

	srv := server.New(cfg.Host, cfg.Port, cfg.Server, handler.Routes())

	go func() {
		logger.Info(ctx).
			Str("addr", srv.Addr).
			Str("gallery_api", cfg.Upstream.BaseURL).
			Strs("catalogs", cfg.Catalog.Paths).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(ctx).Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx).Msg("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("Server forced to shutdown")
	}

	if err := container.Close(); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("Failed to release resources")
	}

	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx).Err(err).Msg("Failed to flush telemetry")
	}

	logger.Info(shutdownCtx).Msg("Server exited")
}
