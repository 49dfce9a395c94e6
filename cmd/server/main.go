package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"airquality-platform/internal/clients"
	"airquality-platform/internal/config"
	"airquality-platform/internal/handlers"
	"airquality-platform/internal/services"
	"airquality-platform/pkg/logging"
	"airquality-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("airquality-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting air quality API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("airquality")

	// Initialize upstream clients
	satelliteClient := clients.NewSatelliteClient(
		cfg.Providers.SatelliteBaseURL,
		cfg.Providers.SatelliteAPIKey,
		cfg.Providers.RequestTimeout,
		logger,
		metricsCollector,
	)
	groundClient := clients.NewGroundClient(
		cfg.Providers.GroundBaseURL,
		cfg.Providers.GroundAPIKey,
		cfg.Providers.RequestTimeout,
		logger,
		metricsCollector,
	)
	weatherClient := clients.NewWeatherClient(
		cfg.Providers.WeatherBaseURL,
		cfg.Providers.WeatherAPIKey,
		cfg.Providers.RequestTimeout,
		logger,
		metricsCollector,
	)

	// Initialize services
	airQualityService := services.NewAirQualityService(logger, metricsCollector)
	forecastService := services.NewForecastService(weatherClient, logger, metricsCollector)
	assessmentService := services.NewAssessmentService(
		satelliteClient,
		groundClient,
		weatherClient,
		airQualityService,
		forecastService,
		logger,
		metricsCollector,
	)

	// Initialize handlers
	airQualityHandler := handlers.NewAirQualityHandler(assessmentService, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)

	// Register routes
	airQualityHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
