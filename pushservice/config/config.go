package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Enabled        bool
	Interval       time.Duration
	BatchSize      int
	SubscriptionID string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID     string
	ListenAddr    string
	AdminUIDs     []string
	TokenCacheTTL time.Duration

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
	Scheduler  SchedulerConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	if val := os.Getenv("PROJECT_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "PROJECT_ID", "source", "env")
		cfg.ProjectID = val
	}
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("ADMIN_UIDS"); val != "" {
		logger.Debug("Overriding config value", "key", "ADMIN_UIDS", "source", "env")
		cfg.AdminUIDs = splitAndTrim(val)
	}

	// Scheduler Overrides
	if val := os.Getenv("SCHEDULER_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Scheduler.Enabled = enabled
	}
	if val := os.Getenv("SCHEDULER_INTERVAL"); val != "" {
		if interval, err := time.ParseDuration(val); err == nil && interval > 0 {
			logger.Debug("Overriding config value", "key", "SCHEDULER_INTERVAL", "source", "env")
			cfg.Scheduler.Interval = interval
		}
	}
	if val := os.Getenv("SCHEDULER_BATCH_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			logger.Debug("Overriding config value", "key", "SCHEDULER_BATCH_SIZE", "source", "env")
			cfg.Scheduler.BatchSize = size
		}
	}
	if val := os.Getenv("SWEEP_SUBSCRIPTION_ID"); val != "" {
		logger.Debug("Overriding config value", "key", "SWEEP_SUBSCRIPTION_ID", "source", "env")
		cfg.Scheduler.SubscriptionID = val
	}

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		cfg.CorsConfig.AllowedOrigins = splitAndTrim(corsOrigins)
	}

	// Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = time.Minute
	}
	if cfg.Scheduler.BatchSize <= 0 {
		cfg.Scheduler.BatchSize = 10
	}
	if cfg.TokenCacheTTL <= 0 {
		cfg.TokenCacheTTL = 24 * time.Hour
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var clean []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return clean
}
