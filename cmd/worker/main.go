package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/followup-api/internal/app"
	"github.com/jwalitptl/followup-api/internal/config"
	"github.com/jwalitptl/followup-api/internal/repository"
	cleanup "github.com/jwalitptl/followup-api/internal/worker"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/messaging/redis"
	"github.com/jwalitptl/followup-api/pkg/metrics"
	"github.com/jwalitptl/followup-api/pkg/worker"
)

const healthAddr = ":8081"

func setupHealthCheck(db repository.Pinger, registry *prometheus.Registry, logger *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/health/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: healthAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig()).With("worker")
	log.Logger = *appLogger.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	repos, err := app.OpenRepositories(ctx, cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to open repositories")
	}
	defer repos.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), appLogger.Zerolog())
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, registry)

	// Initialize and start outbox processor
	processor, err := worker.NewOutboxProcessor(
		repos.Outbox,
		broker,
		cfg.Outbox.ToWorkerConfig(cfg.Redis.Channel),
		appLogger.With("outbox_processor"),
		m,
	)
	if err != nil {
		appLogger.Fatal(err, "Failed to create outbox processor")
	}
	cleaner := cleanup.NewOutboxCleanupWorker(
		repos.Outbox,
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		appLogger.With("outbox_cleanup"),
		m,
	)

	// Setup health check endpoints
	healthSrv := setupHealthCheck(repos.Pinger, registry, appLogger)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleaner.Start(ctx)
	}()

	appLogger.Info("Worker started", "channel", cfg.Redis.Channel)
	<-ctx.Done()
	appLogger.Info("Shutting down...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)
}
