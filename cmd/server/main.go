package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/irfndi/trendcast/internal/api"
	"github.com/irfndi/trendcast/internal/api/handlers"
	"github.com/irfndi/trendcast/internal/cache"
	"github.com/irfndi/trendcast/internal/config"
	"github.com/irfndi/trendcast/internal/database"
	"github.com/irfndi/trendcast/internal/forecast"
	"github.com/irfndi/trendcast/internal/logging"
	"github.com/irfndi/trendcast/internal/services"
	"github.com/irfndi/trendcast/internal/telemetry"
)

const (
	serviceVersion        = "1.0.0"
	systemMetricsInterval = 30 * time.Second
	cacheStatsInterval    = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	stdLogger, otlpLogger := logging.NewStandardOTLPLogger(otlpLogConfig(cfg))
	if otlpLogger != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otlpLogger.Shutdown(ctx); err != nil {
				logger.WithError(err).Warn("Failed to flush OTLP logs")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := telemetry.InitTelemetry(ctx, telemetryConfig(cfg), stdLogger.Logger())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to shutdown telemetry")
		}
	}()

	db, err := database.NewPostgresConnection(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	pool := database.NewTracedPool(db.Pool, stdLogger)
	trendPoints := database.NewTrendPointRepository(pool)
	verified := database.NewVerifiedForecastRepository(pool)
	if err := trendPoints.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare trend point schema: %w", err)
	}
	if err := verified.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare verification schema: %w", err)
	}

	redis, err := database.NewRedisConnection(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redis.Close()

	forecastCache := cache.NewRedisForecastCache(redis.Client, logger)
	tracer := telemetry.NewForecastTracer()
	forecasts := services.NewForecastService(forecast.NewEngine(cfg.Forecast.Engine()), tracer)

	breaker := services.NewCircuitBreaker("trend_points", services.CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}, logger)
	series := services.NewGuardedSeriesProvider(trendPoints, breaker)

	optimizer := services.NewResourceOptimizer(services.ResourceOptimizerConfig{}, logger)
	orchestrator := services.NewWarmupOrchestrator(forecastCache, series, forecasts, optimizer, cfg.Warmup, stdLogger, tracer)
	verifier := services.NewVerificationService(forecastCache, series, verified, forecasts, logger, tracer)

	go runPeriodically(ctx, systemMetricsInterval, func() {
		if err := optimizer.UpdateSystemMetrics(ctx); err != nil {
			logger.WithError(err).Debug("Failed to sample system metrics")
		}
	})
	go runPeriodically(ctx, cacheStatsInterval, forecastCache.LogStats)

	limits := horizonLimits(cfg)
	router := api.NewRouter(cfg.Telemetry.ServiceName, api.Handlers{
		Forecast:     handlers.NewForecastHandler(orchestrator, forecasts, limits, logger),
		Verification: handlers.NewVerificationHandler(verifier, limits, logger),
		Health:       handlers.NewHealthHandler(db, redis, optimizer, serviceVersion),
		TrendPoints:  handlers.NewTrendPointHandler(trendPoints, logger),
	})

	// Create HTTP server with security timeouts. Warmups compute inline, so the write
	// timeout leaves room for a full compute.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Warmup.ComputeTimeout + 10*time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		stdLogger.LogStartup(cfg.Telemetry.ServiceName, serviceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		stdLogger.LogShutdown(cfg.Telemetry.ServiceName, "signal received")
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func telemetryConfig(cfg *config.Config) *telemetry.TelemetryConfig {
	tc := telemetry.DefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = serviceVersion
	tc.Environment = cfg.Environment
	return tc
}

func otlpLogConfig(cfg *config.Config) logging.OTLPConfig {
	return logging.OTLPConfig{
		Enabled:        cfg.Telemetry.Enabled && cfg.Telemetry.OTLPEndpoint != "",
		Endpoint:       collectorHost(cfg.Telemetry.OTLPEndpoint),
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		LogLevel:       cfg.LogLevel,
	}
}

// collectorHost reduces a collector URL to the host:port the log exporter expects.
func collectorHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}

func horizonLimits(cfg *config.Config) handlers.HorizonLimits {
	return handlers.HorizonLimits{
		Default: cfg.Forecast.DefaultHorizonDays,
		Max:     cfg.Forecast.MaxHorizonDays,
	}
}

// runPeriodically calls fn every interval until ctx is done.
func runPeriodically(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
