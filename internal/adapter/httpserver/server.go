// Package httpserver is the HTTP surface of the analysis service: the REST
// API, health probes, metrics, and the WebSocket upgrade endpoint.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/platform/config"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/ratelimit"
)

type appService interface {
	Analyze(ctx context.Context, network domain.Network, rawAddress, identity string) (domain.AnalysisResult, error)
	Invalidate(ctx context.Context, network domain.Network, rawAddress string) error
}

// subscriberCounter reports how many live stream clients follow a token.
type subscriberCounter interface {
	SubscriberCount(network domain.Network, addr string) int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app           appService
	presence      subscriberCounter
	limiter       *ratelimit.Limiter
	globalLimiter *ratelimit.Limiter

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics
	rateMetrics      *metrics.RateLimitMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

// Dependencies carries everything NewServer needs beyond the config. The
// global limiter, presence checker, metrics, and WebSocket handler may be
// nil; the subscriber endpoint is only registered when presence is wired.
type Dependencies struct {
	App              appService
	Presence         subscriberCounter
	Limiter          *ratelimit.Limiter
	GlobalLimiter    *ratelimit.Limiter
	WebSocketHandler http.Handler
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	RateLimitMetrics *metrics.RateLimitMetrics
	HealthChecks     []HealthCheck
}

func NewServer(cfg *config.Config, deps Dependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		app:              deps.App,
		presence:         deps.Presence,
		limiter:          deps.Limiter,
		globalLimiter:    deps.GlobalLimiter,
		websocketHandler: deps.WebSocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.HTTPMetrics,
		rateMetrics:      deps.RateLimitMetrics,
		healthChecks:     deps.HealthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
