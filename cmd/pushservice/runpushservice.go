package main

import (
	"context"
	_ "embed"
	"log/slog"
	"os"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	firebase "firebase.google.com/go/v4"
	"gopkg.in/yaml.v3"

	"github.com/abdulrabbbi/friend2go-admin-panel/internal/auth"
	"github.com/abdulrabbbi/friend2go-admin-panel/internal/engine"
	"github.com/abdulrabbbi/friend2go-admin-panel/internal/platform/fcm"
	"github.com/abdulrabbbi/friend2go-admin-panel/internal/scheduler"
	"github.com/abdulrabbbi/friend2go-admin-panel/internal/storage/cache"
	fsStore "github.com/abdulrabbbi/friend2go-admin-panel/internal/storage/firestore"
	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/dispatch"
	"github.com/abdulrabbbi/friend2go-admin-panel/pushservice"
	"github.com/abdulrabbbi/friend2go-admin-panel/pushservice/config"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "campaign-push-service")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config mapping failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients (created once, injected everywhere) ---
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		logger.Error("Failed to initialize Firebase App", "err", err)
		os.Exit(1)
	}
	fcmMessaging, err := fbApp.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to create FCM messaging client", "err", err)
		os.Exit(1)
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		logger.Error("Failed to create Firebase Auth client", "err", err)
		os.Exit(1)
	}

	// --- Stores (Decorated) ---
	campaignStore := fsStore.NewCampaignStore(fsClient)
	var userStore dispatch.UserStore = fsStore.NewUserStore(fsClient)
	logger.Info("UserStore initialized", "type", "firestore")

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		userStore = cache.NewCachedUserStore(userStore, redisClient, cfg.TokenCacheTTL)
		logger.Info("UserStore upgraded", "type", "redis_cached_firestore")
	}

	// --- Dispatch pipeline ---
	sender := fcm.NewSender(fcmMessaging, logger)
	dispatchEngine := engine.New(campaignStore, userStore, sender, logger)

	// --- Scheduler Trigger ---
	var trigger pushservice.SweepRunner
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewSweeper(campaignStore, dispatchEngine, cfg.Scheduler.Interval, cfg.Scheduler.BatchSize, logger)
		if cfg.Scheduler.SubscriptionID != "" {
			psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
			if err != nil {
				logger.Error("PubSub client failed", "err", err)
				os.Exit(1)
			}
			defer psClient.Close()
			trigger = scheduler.NewPubsubTrigger(psClient.Subscriber(cfg.Scheduler.SubscriptionID), sweeper, logger)
			logger.Info("Scheduler trigger enabled", "mode", "pubsub", "subscription", cfg.Scheduler.SubscriptionID)
		} else {
			trigger = sweeper
			logger.Info("Scheduler trigger enabled", "mode", "interval", "interval", cfg.Scheduler.Interval)
		}
	}

	// --- Auth & Service ---
	authMW := auth.NewMiddleware(authClient, cfg.AdminUIDs, logger)

	service, err := pushservice.New(cfg, dispatchEngine, sender, authMW, trigger, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
