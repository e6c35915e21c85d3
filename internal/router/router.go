package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	adminhandler "github.com/jwalitptl/followup-api/internal/handler/admin"
	authhandler "github.com/jwalitptl/followup-api/internal/handler/auth"
	followuphandler "github.com/jwalitptl/followup-api/internal/handler/followup"
	healthhandler "github.com/jwalitptl/followup-api/internal/handler/health"
	promhandler "github.com/jwalitptl/followup-api/internal/handler/prometheus"
	publichandler "github.com/jwalitptl/followup-api/internal/handler/public"
	"github.com/jwalitptl/followup-api/internal/middleware"
	"github.com/jwalitptl/followup-api/internal/model"
)

// Handlers groups every route owner mounted by the router.
type Handlers struct {
	Auth      *authhandler.Handler
	FollowUps *followuphandler.Handler
	Public    *publichandler.Handler
	Admin     *adminhandler.Handler
	Health    *healthhandler.Handler
	Metrics   *promhandler.Handler
}

type RouterConfig struct {
	LoginRate      rate.Limit
	LoginBurst     int
	RequestTimeout time.Duration
	MetricsPath    string
	TrustedProxies []string
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	h       Handlers
	limiter *middleware.RateLimiter
	config  RouterConfig
}

func NewRouter(auth *middleware.AuthMiddleware, h Handlers, config RouterConfig) (*Router, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(config.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/health/metrics"
	}

	r := &Router{
		engine: engine,
		auth:   auth,
		h:      h,
		limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.LoginRate,
			Burst: config.LoginBurst,
		}),
		config: config,
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if h.Metrics != nil {
		engine.Use(h.Metrics.Middleware())
	}
	engine.Use(
		middleware.ErrorHandler(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	return r, nil
}

func (r *Router) Setup() {
	public := r.engine.Group("", middleware.SecurityHeaders(middleware.PublicPageConfig()))
	r.h.Public.RegisterRoutes(public)

	api := r.engine.Group("/api/v1", middleware.SecurityHeaders(middleware.DefaultSecurityConfig()))

	r.h.Health.RegisterRoutes(api)
	if r.h.Metrics != nil {
		api.GET(r.config.MetricsPath, r.h.Metrics.Handler())
	}

	r.h.Auth.RegisterRoutes(api, r.limiter.RateLimit(), r.auth.Authenticate())

	staff := api.Group("", r.auth.Authenticate())
	r.h.FollowUps.RegisterRoutes(staff)

	operator := api.Group("", r.auth.Authenticate(), r.auth.RequireRole(model.RoleOperator))
	r.h.Admin.RegisterRoutes(operator)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
