package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"whalescan/internal/adapters/config"
	"whalescan/internal/adapters/errors/noop"
	"whalescan/internal/adapters/errors/sentry"
	"whalescan/internal/adapters/explorer"
	"whalescan/internal/adapters/explorer/ratelimit"
	"whalescan/internal/adapters/explorer/retry"
	"whalescan/internal/chains"
	"whalescan/internal/metrics"
	whalesvc "whalescan/internal/services/whale"
	"whalescan/internal/workers"
	"whalescan/internal/workers/onchain"
	"whalescan/pkg/errors"
	"whalescan/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// Initialize metrics
	metrics.Init()

	// Initialize the chain registry and the explorer client
	registry := chains.Default()
	client := initExplorerClient(cfg, registry)

	// Initialize the analysis engine
	engine := whalesvc.NewService(client, cfg.Analysis.MaxConcurrency)

	// Initialize workers
	scheduler := initWorkers(cfg, engine, registry, log)

	log.Info("System initialized successfully")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	metricsServer := startMetricsServer(cfg, log)

	// Wait for shutdown signal
	waitForShutdown(ctx, cancel, scheduler, metricsServer, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initExplorerClient wires the rate limiter, retry policy and HTTP client
func initExplorerClient(cfg *config.Config, registry *chains.Registry) *explorer.Client {
	limiters := ratelimit.New(cfg.Explorer.RateLimitPerSec)
	retryMW := retry.New(retry.Config{
		MaxAttempts: cfg.Explorer.RetryMaxAttempts,
		BaseDelay:   cfg.Explorer.RetryBaseDelay,
		MaxDelay:    cfg.Explorer.RetryMaxDelay,
	})

	return explorer.NewClient(registry, limiters, retryMW, explorer.Config{
		Timeout: cfg.Explorer.HTTPTimeout,
	})
}

// initWorkers initializes background workers
func initWorkers(cfg *config.Config, engine *whalesvc.Service, registry *chains.Registry, log *logger.Logger) *workers.Scheduler {
	log.Info("Initializing workers...")

	threshold, err := decimal.NewFromString(cfg.Workers.MovementMonitorThreshold)
	if err != nil {
		log.Warnf("Invalid movement threshold %q, using 100: %v", cfg.Workers.MovementMonitorThreshold, err)
		threshold = decimal.NewFromInt(100)
	}

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(onchain.NewMovementMonitor(
		engine,
		registry,
		threshold,
		cfg.Workers.MovementMonitorInterval,
		cfg.Workers.MovementMonitorEnabled,
	))

	log.Info("Workers initialized")
	return scheduler
}

// startMetricsServer exposes the Prometheus endpoint, if enabled
func startMetricsServer(cfg *config.Config, log *logger.Logger) *http.Server {
	if !cfg.Metrics.Enabled {
		log.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		log.Infof("Metrics server listening on %s", cfg.Metrics.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()

	return server
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	metricsServer *http.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	// Graceful shutdown
	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Worker shutdown: %v", err)
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Metrics server shutdown: %v", err)
		}
	}

	// Flush error tracker
	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
