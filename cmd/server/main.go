package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/httpserver"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/metrics"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/pillars"
	redisadapter "github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/redis"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/adapter/websocket"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/app"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/cache"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/platform/config"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/platform/logging"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/ratelimit"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/sentiment"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	client, err := redisadapter.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupEngine(cfg *config.Config, clock clockwork.Clock) *sentiment.Engine {
	weights := sentiment.Weights{
		Onchain:      cfg.WeightOnchain,
		Social:       cfg.WeightSocial,
		Fundamentals: cfg.WeightFundamentals,
	}
	thresholds := sentiment.Thresholds{
		Bullish: cfg.BullishThreshold,
		Bearish: cfg.BearishThreshold,
	}

	engine, err := sentiment.NewEngine(weights, thresholds, clock)
	if err != nil {
		slog.Error("Failed to create sentiment engine", "error", err)
		os.Exit(1)
	}
	return engine
}

func setupSources(cfg *config.Config) []domain.PillarSource {
	return []domain.PillarSource{
		pillars.NewOnchainSource(cfg.OnchainAPIURL, cfg.OnchainAPIKey, cfg.SourceTimeout, pillars.QualityLadder{
			Fair:      cfg.OnchainFlowFairUSD,
			Good:      cfg.OnchainFlowGoodUSD,
			Excellent: cfg.OnchainFlowExcellentUSD,
		}),
		pillars.NewSocialSource(cfg.SocialAPIURL, cfg.SocialAPIKey, cfg.SourceTimeout, pillars.QualityLadder{
			Fair:      cfg.SocialPostsFair,
			Good:      cfg.SocialPostsGood,
			Excellent: cfg.SocialPostsExcellent,
		}),
		pillars.NewFundamentalsSource(cfg.FundamentalsAPIURL, cfg.FundamentalsAPIKey, cfg.SourceTimeout, pillars.QualityLadder{
			Fair:      cfg.FundamentalsMcapFairUSD,
			Good:      cfg.FundamentalsMcapGoodUSD,
			Excellent: cfg.FundamentalsMcapExcellentUSD,
		}),
	}
}

func runGracefulShutdown(srv *httpserver.Server, node *centrifuge.Node, stops []func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("WebSocket node shutdown error", "error", err)
		}

		for _, stop := range stops {
			stop()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	redisClient := setupRedis(context.Background(), cfg)
	defer func() { _ = redisClient.Close() }()

	registry := metrics.NewRegistry()
	cacheMetrics := metrics.NewCacheMetrics(registry)
	analysisMetrics := metrics.NewAnalysisMetrics(registry)
	rateMetrics := metrics.NewRateLimitMetrics(registry)
	wsMetrics := metrics.NewWebSocketMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	// Two-tier result cache: Redis durable, in-process fallback.
	localStore := cache.NewMemoryStore(0)
	stopEviction := localStore.StartEvictionTimer(time.Minute)
	resultCache := cache.NewHybrid(redisadapter.NewResultStore(redisClient), localStore, cache.Options{
		Metrics: cacheMetrics,
	})

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		MaxRequests: cfg.RateLimitMaxRequests,
		Window:      cfg.RateLimitWindow,
	}, clock)
	stopLimiterCleanup := limiter.StartCleanupTimer(time.Minute)

	var globalLimiter *ratelimit.Limiter
	if cfg.GlobalRateLimitMax > 0 {
		globalLimiter = ratelimit.NewLimiter(ratelimit.Config{
			MaxRequests: cfg.GlobalRateLimitMax,
			Window:      cfg.GlobalRateLimitWindow,
		}, clock)
	}

	engine := setupEngine(cfg, clock)

	node, err := websocket.NewNode(wsMetrics, cfg.MaxWebSocketConnections, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create WebSocket node", "error", err)
		os.Exit(1)
	}
	if err := node.Run(); err != nil {
		slog.Error("Failed to run WebSocket node", "error", err)
		os.Exit(1)
	}
	publisher := websocket.NewPublisher(node, wsMetrics)

	appSvc := app.NewService(app.Dependencies{
		Engine:           engine,
		Sources:          setupSources(cfg),
		Cache:            resultCache,
		Limiter:          limiter,
		GlobalLimiter:    asRateLimiter(globalLimiter),
		Publisher:        publisher,
		Clock:            clock,
		AnalysisMetrics:  analysisMetrics,
		RateLimitMetrics: rateMetrics,
		SourceTimeout:    cfg.SourceTimeout,
		RequestTimeout:   cfg.RequestTimeout,
		CacheTTL:         cfg.CacheTTL,
	})

	websocketHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, cfg.AppEnv == "development"),
	})

	healthChecks := []httpserver.HealthCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}

	srv := httpserver.NewServer(cfg, httpserver.Dependencies{
		App:              appSvc,
		Presence:         websocket.NewPresenceChecker(node),
		Limiter:          limiter,
		GlobalLimiter:    globalLimiter,
		WebSocketHandler: websocketHandler,
		MetricsHandler:   metrics.Handler(registry),
		HTTPMetrics:      httpMetrics,
		RateLimitMetrics: rateMetrics,
		HealthChecks:     healthChecks,
	})

	done := runGracefulShutdown(srv, node, []func(){stopEviction, stopLimiterCleanup})

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}

// asRateLimiter avoids a typed-nil interface when the global cap is disabled.
func asRateLimiter(l *ratelimit.Limiter) domain.RateLimiter {
	if l == nil {
		return nil
	}
	return l
}
