package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"
)

// weightTolerance is the allowed deviation of the pillar weight sum from 1.0.
const weightTolerance = 1e-6

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8080"`
	RedisURL  string `env:"REDIS_URL"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	OnchainAPIURL      string `env:"ONCHAIN_API_URL"`
	OnchainAPIKey      string `env:"ONCHAIN_API_KEY"`
	SocialAPIURL       string `env:"SOCIAL_API_URL"`
	SocialAPIKey       string `env:"SOCIAL_API_KEY"`
	FundamentalsAPIURL string `env:"FUNDAMENTALS_API_URL"`
	FundamentalsAPIKey string `env:"FUNDAMENTALS_API_KEY"`

	// WeightsFile optionally points to a YAML file overriding weights,
	// thresholds, and quality ladders.
	WeightsFile string `env:"WEIGHTS_FILE"`

	WeightOnchain      float64 `env:"WEIGHT_ONCHAIN" default:"0.60"`
	WeightSocial       float64 `env:"WEIGHT_SOCIAL" default:"0.25"`
	WeightFundamentals float64 `env:"WEIGHT_FUNDAMENTALS" default:"0.15"`

	BullishThreshold float64 `env:"BULLISH_THRESHOLD" default:"0.2"`
	BearishThreshold float64 `env:"BEARISH_THRESHOLD" default:"-0.2"`

	RateLimitMaxRequests  int           `env:"RATE_LIMIT_MAX_REQUESTS" default:"2"`
	RateLimitWindow       time.Duration `env:"RATE_LIMIT_WINDOW" default:"60s"`
	GlobalRateLimitMax    int           `env:"GLOBAL_RATE_LIMIT_MAX_REQUESTS" default:"0"` // 0 disables the global cap
	GlobalRateLimitWindow time.Duration `env:"GLOBAL_RATE_LIMIT_WINDOW" default:"60s"`

	CacheTTL       time.Duration `env:"CACHE_TTL" default:"300s"`
	SourceTimeout  time.Duration `env:"SOURCE_TIMEOUT" default:"10s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" default:"30s"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`

	// Quality ladders: cutoffs on each pillar's magnitude metric for the
	// Fair / Good / Excellent labels. Below Fair is Poor, a zero metric is
	// Missing.
	OnchainFlowFairUSD      float64 `env:"ONCHAIN_FLOW_FAIR_USD" default:"1000"`
	OnchainFlowGoodUSD      float64 `env:"ONCHAIN_FLOW_GOOD_USD" default:"10000"`
	OnchainFlowExcellentUSD float64 `env:"ONCHAIN_FLOW_EXCELLENT_USD" default:"100000"`

	SocialPostsFair      float64 `env:"SOCIAL_POSTS_FAIR" default:"10"`
	SocialPostsGood      float64 `env:"SOCIAL_POSTS_GOOD" default:"30"`
	SocialPostsExcellent float64 `env:"SOCIAL_POSTS_EXCELLENT" default:"50"`

	FundamentalsMcapFairUSD      float64 `env:"FUNDAMENTALS_MCAP_FAIR_USD" default:"1000000"`
	FundamentalsMcapGoodUSD      float64 `env:"FUNDAMENTALS_MCAP_GOOD_USD" default:"100000000"`
	FundamentalsMcapExcellentUSD float64 `env:"FUNDAMENTALS_MCAP_EXCELLENT_USD" default:"1000000000"`
}

// weightsFile mirrors the optional YAML override file.
type weightsFile struct {
	Weights struct {
		Onchain      *float64 `yaml:"onchain"`
		Social       *float64 `yaml:"social"`
		Fundamentals *float64 `yaml:"fundamentals"`
	} `yaml:"weights"`
	Thresholds struct {
		Bullish *float64 `yaml:"bullish"`
		Bearish *float64 `yaml:"bearish"`
	} `yaml:"thresholds"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.WeightsFile != "" {
		if err := mergeWeightsFile(&cfg, cfg.WeightsFile); err != nil {
			return nil, err
		}
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func mergeWeightsFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read weights file %s: %w", path, err)
	}

	var wf weightsFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}

	if wf.Weights.Onchain != nil {
		cfg.WeightOnchain = *wf.Weights.Onchain
	}
	if wf.Weights.Social != nil {
		cfg.WeightSocial = *wf.Weights.Social
	}
	if wf.Weights.Fundamentals != nil {
		cfg.WeightFundamentals = *wf.Weights.Fundamentals
	}
	if wf.Thresholds.Bullish != nil {
		cfg.BullishThreshold = *wf.Thresholds.Bullish
	}
	if wf.Thresholds.Bearish != nil {
		cfg.BearishThreshold = *wf.Thresholds.Bearish
	}

	return nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"REDIS_URL":            cfg.RedisURL,
		"ONCHAIN_API_URL":      cfg.OnchainAPIURL,
		"SOCIAL_API_URL":       cfg.SocialAPIURL,
		"FUNDAMENTALS_API_URL": cfg.FundamentalsAPIURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	sum := cfg.WeightOnchain + cfg.WeightSocial + cfg.WeightFundamentals
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("pillar weights must sum to 1.0, got %g", sum)
	}
	for name, w := range map[string]float64{
		"WEIGHT_ONCHAIN":      cfg.WeightOnchain,
		"WEIGHT_SOCIAL":       cfg.WeightSocial,
		"WEIGHT_FUNDAMENTALS": cfg.WeightFundamentals,
	} {
		if w <= 0 || w > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %g", name, w)
		}
	}

	if cfg.BullishThreshold <= 0 {
		return fmt.Errorf("BULLISH_THRESHOLD must be positive, got %g", cfg.BullishThreshold)
	}
	if cfg.BearishThreshold >= 0 {
		return fmt.Errorf("BEARISH_THRESHOLD must be negative, got %g", cfg.BearishThreshold)
	}

	if cfg.RateLimitMaxRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be positive, got %d", cfg.RateLimitMaxRequests)
	}
	if cfg.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", cfg.RateLimitWindow)
	}
	if cfg.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %s", cfg.CacheTTL)
	}
	if cfg.SourceTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}

	return nil
}
