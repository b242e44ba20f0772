package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	LogLevel       string
	LogJSON        bool
	Store          string
	DatabaseURL    string
	MigrationsPath string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogJSON:        os.Getenv("LOG_JSON") == "true",
		Store:          getEnvOrDefault("STORE", StoreMemory),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", "migrations"),

		DBMaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every configuration problem at once rather than the
// first one encountered.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Port == "" {
		result = multierror.Append(result, fmt.Errorf("PORT must not be empty"))
	}
	if c.Store != StoreMemory && c.Store != StorePostgres {
		result = multierror.Append(result,
			fmt.Errorf("STORE must be %q or %q, got %q", StoreMemory, StorePostgres, c.Store))
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		result = multierror.Append(result,
			fmt.Errorf("DATABASE_URL environment variable is required when STORE=postgres"))
	}
	if c.Store == StorePostgres && c.MigrationsPath == "" {
		result = multierror.Append(result,
			fmt.Errorf("MIGRATIONS_PATH must not be empty when STORE=postgres"))
	}
	if c.DBMaxOpenConns < 1 {
		result = multierror.Append(result, fmt.Errorf("DB_MAX_OPEN_CONNS must be at least 1"))
	}
	if c.DBMaxIdleConns < 0 {
		result = multierror.Append(result, fmt.Errorf("DB_MAX_IDLE_CONNS must not be negative"))
	}

	return result.ErrorOrNil()
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault falls back to the default when the variable is unset
// or not an integer.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault parses values like "5m" or "90s".
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
