package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
	"github.com/rs/zerolog/log"
)

// Config holds the service configuration, read from the environment.
type Config struct {
	Port     string `env:"PORT,default=8082"`
	GinMode  string `env:"GIN_MODE,default=release"`
	DevMode  bool   `env:"DEV_MODE,default=false"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
	LogJSON  bool   `env:"LOG_JSON,default=false"`
	DataDir  string `env:"DATA_DIR,default=data"`

	// Report storage. Empty keeps reports in memory.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB,default=0"`

	// Upstream SERP provider
	SerpAPIURL string `env:"SERP_API_URL,default=https://api.serpdata.example/v1/serp"`
	SerpAPIKey string `env:"SERP_API_KEY"`
	SerpEngine string `env:"SERP_ENGINE,default=g_us"`

	// Upstream performance auditor (PageSpeed Insights)
	PageSpeedAPIURL  string        `env:"PAGESPEED_API_URL,default=https://www.googleapis.com/pagespeedonline/v5/runPagespeed"`
	PageSpeedAPIKey  string        `env:"PAGESPEED_API_KEY"`
	PageSpeedDevice  string        `env:"PAGESPEED_STRATEGY,default=mobile"`
	UpstreamRPS      float64       `env:"UPSTREAM_RPS,default=2"`
	UpstreamTimeout  time.Duration `env:"UPSTREAM_TIMEOUT,default=60s"`
	UpstreamCacheTTL time.Duration `env:"UPSTREAM_CACHE_TTL,default=30m"`

	// Advice generation
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL,default=gpt-4o-mini"`

	// Optional YAML weighting table for the scorers
	ScoringConfig string `env:"SCORING_CONFIG"`

	// Per-client request limits
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=5"`
}

// LoadEnvFiles loads .env.development, falling back to .env. Missing files
// are not an error; the process environment is used as is.
func LoadEnvFiles() {
	if err := godotenv.Load(".env.development"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("No .env file found, using environment variables")
		}
	}
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if config.RateLimitRPS <= 0 {
		config.RateLimitRPS = 2
	}
	if config.RateLimitBurst < 1 {
		config.RateLimitBurst = 1
	}
	if config.UpstreamRPS <= 0 {
		config.UpstreamRPS = 1
	}
	if config.UpstreamRPS > 50 {
		config.UpstreamRPS = 50
	}
	if config.UpstreamTimeout <= 0 {
		config.UpstreamTimeout = 60 * time.Second
	}
	if config.UpstreamCacheTTL < 0 {
		config.UpstreamCacheTTL = 0
	}

	switch config.PageSpeedDevice {
	case "mobile", "desktop":
	default:
		return fmt.Errorf("PAGESPEED_STRATEGY must be mobile or desktop, got %q", config.PageSpeedDevice)
	}

	for name, raw := range map[string]string{
		"SERP_API_URL":      config.SerpAPIURL,
		"PAGESPEED_API_URL": config.PageSpeedAPIURL,
		"OPENAI_BASE_URL":   config.OpenAIBaseURL,
	} {
		if raw == "" && name == "OPENAI_BASE_URL" {
			continue
		}
		if err := validateHTTPURL(name, raw); err != nil {
			return err
		}
	}

	return nil
}

func validateHTTPURL(name, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s URL format: %w", name, err)
	}
	if !strings.HasPrefix(parsed.Scheme, "http") {
		return fmt.Errorf("%s scheme must be http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a valid host", name)
	}
	return nil
}
