package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/address"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/domain"
	apperrors "github.com/hellomynameismarc/token-analysis-bot-v1/internal/platform/errors"
	"github.com/hellomynameismarc/token-analysis-bot-v1/internal/ratelimit"
)

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newIPRateLimiter(10, 20))
	api.GET("/networks", s.handleNetworks)
	api.GET("/sentiment/:network/:address", s.handleAnalyze)
	api.DELETE("/cache/:network/:address", s.handleInvalidate)
	api.GET("/stats", s.handleStats)
	if s.presence != nil {
		api.GET("/sentiment/:network/:address/subscribers", s.handleSubscribers)
	}
}

func (s *Server) handleAnalyze(c echo.Context) error {
	ctx := c.Request().Context()

	network := domain.Network(c.Param("network"))
	identity := c.QueryParam("identity")
	if identity == "" {
		identity = c.RealIP()
	}

	result, err := s.app.Analyze(ctx, network, c.Param("address"), identity)
	if err != nil {
		return s.mapAnalyzeError(c, network, err)
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) mapAnalyzeError(c echo.Context, network domain.Network, err error) error {
	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		retryAfter := int(rateErr.RetryAfter.Seconds()) + 1
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return apperrors.RateLimitedError("rate limit exceeded", rateErr.RetryAfter)
	}

	switch {
	case errors.Is(err, address.ErrUnsupportedNetwork):
		return apperrors.ValidationError("unsupported network").WithField("network", string(network))
	case errors.Is(err, address.ErrInvalidAddress):
		return apperrors.ValidationError(err.Error()).WithField("network", string(network))
	case errors.Is(err, domain.ErrNoData):
		return apperrors.NoDataError("no pillar data available for this token")
	case errors.Is(err, domain.ErrRequestTimeout):
		return apperrors.TimeoutError("analysis did not complete in time", err)
	default:
		return apperrors.InternalError("analysis failed", err)
	}
}

func (s *Server) handleInvalidate(c echo.Context) error {
	ctx := c.Request().Context()
	network := domain.Network(c.Param("network"))

	if err := s.app.Invalidate(ctx, network, c.Param("address")); err != nil {
		return s.mapAnalyzeError(c, network, err)
	}

	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSubscribers(c echo.Context) error {
	network := domain.Network(c.Param("network"))

	normalized, err := address.Validate(network, c.Param("address"))
	if err != nil {
		return s.mapAnalyzeError(c, network, err)
	}

	response := map[string]any{
		"network":     network,
		"address":     normalized,
		"subscribers": s.presence.SubscriberCount(network, normalized),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleNetworks(c echo.Context) error {
	type networkInfo struct {
		Name    domain.Network `json:"name"`
		ChainID int            `json:"chainId"`
	}

	networks := make([]networkInfo, 0, len(domain.Networks()))
	for _, n := range domain.Networks() {
		chainID, _ := n.ChainID()
		networks = append(networks, networkInfo{Name: n, ChainID: chainID})
	}

	if err := c.JSON(http.StatusOK, map[string]any{"networks": networks}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type limiterOverview struct {
	TrackedIdentities int     `json:"trackedIdentities"`
	MaxRequests       int     `json:"maxRequests"`
	WindowSeconds     float64 `json:"windowSeconds"`
}

func (s *Server) handleStats(c echo.Context) error {
	response := map[string]any{
		"uptimeSeconds": time.Since(s.startTime).Seconds(),
	}

	if s.limiter != nil {
		response["rateLimiter"] = limiterOverview{
			TrackedIdentities: s.limiter.TrackedIdentities(),
			MaxRequests:       s.config.RateLimitMaxRequests,
			WindowSeconds:     s.config.RateLimitWindow.Seconds(),
		}
		if s.rateMetrics != nil {
			s.rateMetrics.TrackedIdentities.Set(float64(s.limiter.TrackedIdentities()))
		}
	}
	if s.globalLimiter != nil {
		stats := s.globalLimiter.Stats(ratelimit.GlobalIdentity)
		response["globalRateLimiter"] = map[string]any{
			"used":          stats.Used,
			"maxRequests":   s.config.GlobalRateLimitMax,
			"windowSeconds": s.config.GlobalRateLimitWindow.Seconds(),
		}
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
