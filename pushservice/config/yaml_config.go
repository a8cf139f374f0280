// Package config holds the single, authoritative configuration for the push
// service, mapped from an embedded YAML file with environment overrides.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

type YamlSchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval is a Go duration string, e.g. "1m".
	Interval  string `yaml:"interval"`
	BatchSize int    `yaml:"batch_size"`
	// SubscriptionID switches the trigger to Pub/Sub tick mode when set.
	SubscriptionID string `yaml:"subscription_id"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID       string              `yaml:"project_id"`
	ListenAddr      string              `yaml:"listen_addr"`
	AdminUIDs       []string            `yaml:"admin_uids"`
	TokenCacheTTL   string              `yaml:"token_cache_ttl"`
	CorsConfig      YamlCorsConfig      `yaml:"cors"`
	RedisConfig     YamlRedisConfig     `yaml:"redis"`
	SchedulerConfig YamlSchedulerConfig `yaml:"scheduler"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:  baseCfg.ProjectID,
		ListenAddr: baseCfg.ListenAddr,
		AdminUIDs:  baseCfg.AdminUIDs,
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
		Scheduler: SchedulerConfig{
			Enabled:        baseCfg.SchedulerConfig.Enabled,
			BatchSize:      baseCfg.SchedulerConfig.BatchSize,
			SubscriptionID: baseCfg.SchedulerConfig.SubscriptionID,
		},
	}

	if baseCfg.SchedulerConfig.Interval != "" {
		interval, err := time.ParseDuration(baseCfg.SchedulerConfig.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler interval %q: %w", baseCfg.SchedulerConfig.Interval, err)
		}
		cfg.Scheduler.Interval = interval
	}
	if baseCfg.TokenCacheTTL != "" {
		ttl, err := time.ParseDuration(baseCfg.TokenCacheTTL)
		if err != nil {
			return nil, fmt.Errorf("invalid token cache ttl %q: %w", baseCfg.TokenCacheTTL, err)
		}
		cfg.TokenCacheTTL = ttl
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
	)

	return cfg, nil
}
