package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SupabaseURL       string `env:"SUPABASE_URL"`
	SupabaseAnonKey   string `env:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	CrewAPIURL       string        `env:"CREW_API_URL"`
	CrewAPIToken     string        `env:"CREW_API_TOKEN"`
	CrewPollInterval time.Duration `env:"CREW_POLL_INTERVAL" default:"5s"`
	CrewTimeout      time.Duration `env:"CREW_TIMEOUT" default:"10m"`

	CORSAllowedOrigins string  `env:"CORS_ALLOWED_ORIGINS" default:"*"`
	HTTPRateLimit      float64 `env:"HTTP_RATE_LIMIT" default:"20"`
	HTTPRateBurst      int     `env:"HTTP_RATE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"30s"`

	AnalysisWorkers   int `env:"ANALYSIS_WORKERS" default:"2"`
	AnalysisQueueSize int `env:"ANALYSIS_QUEUE_SIZE" default:"32"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// CrewEnabled reports whether the workflow runtime is configured.
func (c *Config) CrewEnabled() bool {
	return c.CrewAPIURL != "" && c.CrewAPIToken != ""
}

// AuthMode is "jwt" when tokens are verified locally, "remote" otherwise.
func (c *Config) AuthMode() string {
	if c.SupabaseJWTSecret != "" {
		return "jwt"
	}
	return "remote"
}

func (c *Config) RateLimitBackend() string {
	if c.RedisURL != "" {
		return "redis"
	}
	return "memory"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func validate(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if cfg.SupabaseJWTSecret == "" {
		if cfg.SupabaseURL == "" {
			return errors.New("SUPABASE_URL is required when SUPABASE_JWT_SECRET is not set")
		}
		if cfg.SupabaseAnonKey == "" {
			return errors.New("SUPABASE_ANON_KEY is required when SUPABASE_JWT_SECRET is not set")
		}
	}

	if (cfg.CrewAPIURL == "") != (cfg.CrewAPIToken == "") {
		return errors.New("CREW_API_URL and CREW_API_TOKEN must be set together")
	}
	if cfg.CrewPollInterval <= 0 {
		return errors.New("CREW_POLL_INTERVAL must be positive")
	}
	if cfg.CrewTimeout < cfg.CrewPollInterval {
		return errors.New("CREW_TIMEOUT must not be shorter than CREW_POLL_INTERVAL")
	}

	if cfg.AnalysisWorkers < 1 {
		return fmt.Errorf("ANALYSIS_WORKERS must be at least 1, got %d", cfg.AnalysisWorkers)
	}
	if cfg.AnalysisQueueSize < 1 {
		return fmt.Errorf("ANALYSIS_QUEUE_SIZE must be at least 1, got %d", cfg.AnalysisQueueSize)
	}

	if cfg.HTTPRateLimit <= 0 || cfg.HTTPRateBurst < 1 {
		return errors.New("HTTP_RATE_LIMIT and HTTP_RATE_BURST must be positive")
	}

	if cfg.AppEnv == "production" {
		if mode := sslMode(cfg.DatabaseURL); mode == "disable" || mode == "allow" {
			return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
		}
	}

	return nil
}

func sslMode(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Query().Get("sslmode"))
}
