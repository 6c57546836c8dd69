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

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	minModeratorSecretLength = 16
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend string        `env:"STORE_BACKEND" default:"memory"`
	RedisURL     string        `env:"REDIS_URL"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	PollTTL      time.Duration `env:"POLL_TTL" default:"24h"`

	ModeratorTokenSecret string `env:"MODERATOR_TOKEN_SECRET"`

	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"10"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"20"`

	WebSocketAllowedOrigins string `env:"WEBSOCKET_ALLOWED_ORIGINS"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
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

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AllowedOrigins splits WEBSOCKET_ALLOWED_ORIGINS into trimmed hosts.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.WebSocketAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE_BACKEND is redis")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StoreRedis, cfg.StoreBackend)
	}

	if cfg.PollTTL <= 0 {
		return errors.New("POLL_TTL must be positive")
	}
	if cfg.RateLimitPerSecond <= 0 || cfg.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}

	if cfg.ModeratorTokenSecret != "" && len(cfg.ModeratorTokenSecret) < minModeratorSecretLength {
		return fmt.Errorf("MODERATOR_TOKEN_SECRET must be at least %d characters", minModeratorSecretLength)
	}

	if cfg.IsProduction() {
		if cfg.ModeratorTokenSecret == "" {
			return errors.New("MODERATOR_TOKEN_SECRET is required in production")
		}
		if cfg.DatabaseURL != "" {
			if err := checkSSLMode(cfg.DatabaseURL); err != nil {
				return err
			}
		}
	}

	return nil
}

func checkSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
