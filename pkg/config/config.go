package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aryan0dhankhar/deliveryhub/pkg/database"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds the application configuration. Every field comes from the
// environment; cmd/server loads a .env file into the environment first.
type Config struct {
	Environment        string   `env:"ENVIRONMENT" env-default:"development"`
	ServerPort         int      `env:"SERVER_PORT" env-default:"8080"`
	LogLevel           string   `env:"LOG_LEVEL" env-default:"info"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:3000"`
	RedisURL           string   `env:"REDIS_URL" env-default:"redis://localhost:6379"`
	RunMigrations      bool     `env:"RUN_MIGRATIONS" env-default:"true"`
	// StoreDriver is "postgres", or "memory" for local runs without a database
	StoreDriver        string   `env:"STORE_DRIVER" env-default:"postgres"`

	Database database.Config
	Auth     AuthConfig
	Limits   LimitsConfig
	Sweeper  SweeperConfig
}

// AuthConfig configures token issuance
type AuthConfig struct {
	JWTSecret    string `env:"JWT_SECRET" env-default:"dev-secret-change-me"`
	Issuer       string `env:"JWT_ISSUER" env-default:"deliveryhub"`
	TokenTTLDays int    `env:"TOKEN_TTL_DAYS" env-default:"7"`
}

// LimitsConfig configures request and login throttling
type LimitsConfig struct {
	RequestsPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" env-default:"120"`
	LoginMaxFailures  int           `env:"LOGIN_MAX_FAILURES" env-default:"5"`
	LoginLockout      time.Duration `env:"LOGIN_LOCKOUT" env-default:"15m"`
}

// SweeperConfig configures the orphan location sweeper
type SweeperConfig struct {
	Interval    time.Duration `env:"ORPHAN_SWEEP_INTERVAL" env-default:"10m"`
	GracePeriod time.Duration `env:"ORPHAN_GRACE_PERIOD" env-default:"1h"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.ServerPort)
	}
	if c.Auth.TokenTTLDays <= 0 {
		return errors.New("TOKEN_TTL_DAYS must be positive")
	}
	if c.IsProduction() && c.Auth.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.StoreDriver != "postgres" && c.StoreDriver != "memory" {
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", c.StoreDriver)
	}
	if c.IsProduction() && c.StoreDriver == "memory" {
		return errors.New("STORE_DRIVER=memory is not allowed in production")
	}
	if c.Sweeper.Interval <= 0 {
		return errors.New("ORPHAN_SWEEP_INTERVAL must be positive")
	}
	return nil
}
