package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/followup-api/internal/app"
	"github.com/jwalitptl/followup-api/internal/config"
	adminhandler "github.com/jwalitptl/followup-api/internal/handler/admin"
	authhandler "github.com/jwalitptl/followup-api/internal/handler/auth"
	followuphandler "github.com/jwalitptl/followup-api/internal/handler/followup"
	healthhandler "github.com/jwalitptl/followup-api/internal/handler/health"
	promhandler "github.com/jwalitptl/followup-api/internal/handler/prometheus"
	publichandler "github.com/jwalitptl/followup-api/internal/handler/public"
	"github.com/jwalitptl/followup-api/internal/middleware"
	"github.com/jwalitptl/followup-api/internal/router"
	"github.com/jwalitptl/followup-api/pkg/logger"
	"github.com/jwalitptl/followup-api/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())
	log.Logger = *appLogger.Zerolog()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	repos, err := app.OpenRepositories(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open repositories")
	}
	defer repos.Close()

	if cfg.Database.Driver == "memory" {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
	}

	// Initialize metrics and services
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, registry)
	svc := app.NewServices(cfg, repos, m, appLogger)

	// Setup router
	r, err := router.NewRouter(
		middleware.NewAuthMiddleware(svc.Auth),
		router.Handlers{
			Auth:      authhandler.NewHandler(svc.Auth),
			FollowUps: followuphandler.NewHandler(svc.Guard),
			Public:    publichandler.NewHandler(svc.Disclosure),
			Admin:     adminhandler.NewHandler(svc.Clinics, svc.Users, svc.Admin),
			Health:    healthhandler.NewHandler(repos.Pinger),
			Metrics:   promhandler.New(cfg.Monitoring.Namespace, registry),
		},
		router.RouterConfig{
			LoginRate:      rate.Limit(cfg.RateLimit.LoginRPS),
			LoginBurst:     cfg.RateLimit.LoginBurst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MetricsPath:    cfg.Monitoring.MetricsPath,
			TrustedProxies: cfg.Server.TrustedProxies,
		},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
