// Package config loads server configuration from the environment.
// A .env file in the working directory is picked up when present.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full server configuration.
type Config struct {
	App         AppConfig
	DB          DBConfig
	JWT         JWTConfig
	Idempotency IdempotencyConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env      string
	Port     string
	LogLevel string
}

// DBConfig holds database connection settings.
type DBConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string
}

// IdempotencyConfig controls the idempotency middleware.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load reads configuration from the environment. DATABASE_URL and
// JWT_SECRET are required; everything else has defaults.
func Load() (*Config, error) {
	// Best-effort; absence of a .env file is not an error.
	_ = godotenv.Load()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("required environment variable DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("required environment variable JWT_SECRET not set")
	}

	return &Config{
		App: AppConfig{
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnv("APP_PORT", "8080"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DSN:             dsn,
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),
		},
		JWT: JWTConfig{
			Secret: secret,
		},
		Idempotency: IdempotencyConfig{
			Enabled: getEnv("IDEMPOTENCY_ENABLED", "true") == "true",
			TTL:     getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
	}, nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
