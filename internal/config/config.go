package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shaibs3/holovote/internal/storage"
	"github.com/shaibs3/holovote/internal/swapi"
	"go.uber.org/zap"
)

// Config holds everything the service reads from its environment
type Config struct {
	Port        string
	Environment string
	LogLevel    string

	// DBConfig is the storage JSON understood by storage.ProviderFactory
	DBConfig string

	SwapiBaseURL       string
	SwapiTimeout       time.Duration
	SwapiRetryAttempts uint
	SwapiRetryDelay    time.Duration
	SwapiRetryMaxDelay time.Duration

	// SyncSchedule is a cron expression for refreshing the mirror; empty disables it
	SyncSchedule string
}

// Swapi returns the client settings carried by the config
func (c *Config) Swapi() swapi.Config {
	return swapi.Config{
		BaseURL:  c.SwapiBaseURL,
		Timeout:  c.SwapiTimeout,
		Attempts: c.SwapiRetryAttempts,
		Delay:    c.SwapiRetryDelay,
		MaxDelay: c.SwapiRetryMaxDelay,
	}
}

// Load reads .env (if present) and the process environment
func Load(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}

	defaults := swapi.DefaultConfig()
	cfg := &Config{
		Port:               getEnv("PORT", "8000"),
		Environment:        getEnv("ENVIRONMENT", "production"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBConfig:           dbConfig(logger),
		SwapiBaseURL:       getEnv("SWAPI_BASE_URL", defaults.BaseURL),
		SwapiTimeout:       getDuration(logger, "SWAPI_TIMEOUT", defaults.Timeout),
		SwapiRetryAttempts: getUint(logger, "SWAPI_RETRY_ATTEMPTS", defaults.Attempts),
		SwapiRetryDelay:    getDuration(logger, "SWAPI_RETRY_DELAY", defaults.Delay),
		SwapiRetryMaxDelay: getDuration(logger, "SWAPI_RETRY_MAX_DELAY", defaults.MaxDelay),
		SyncSchedule:       os.Getenv("SYNC_SCHEDULE"),
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("swapi_base_url", cfg.SwapiBaseURL),
		zap.Bool("scheduled_sync", cfg.SyncSchedule != ""))
	return cfg
}

// dbConfig prefers DB_CONFIG, then POSTGRES_* variables, then the in-memory store
func dbConfig(logger *zap.Logger) string {
	if raw := os.Getenv("DB_CONFIG"); raw != "" {
		return raw
	}

	config := storage.DbProviderConfig{
		DbType:       storage.DbTypeMemory,
		ExtraDetails: map[string]interface{}{},
	}
	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		dsn := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
			Host:     fmt.Sprintf("%s:%s", host, getEnv("POSTGRES_PORT", "5432")),
			Path:     "/" + getEnv("POSTGRES_DB", "swapi"),
			RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
		}
		config = storage.DbProviderConfig{
			DbType:       storage.DbTypePostgres,
			ExtraDetails: map[string]interface{}{"conn_str": dsn.String()},
		}
	} else {
		logger.Warn("no database configured, using in-memory store")
	}

	b, _ := json.Marshal(config)
	return string(b)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(logger *zap.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	// plain numbers are seconds
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	logger.Warn("invalid duration, using default",
		zap.String("key", key), zap.String("value", v), zap.Duration("default", fallback))
	return fallback
}

func getUint(logger *zap.Logger, key string, fallback uint) uint {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		logger.Warn("invalid count, using default",
			zap.String("key", key), zap.String("value", v), zap.Uint("default", fallback))
		return fallback
	}
	return uint(n)
}
