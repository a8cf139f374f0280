// Package pushservice assembles the campaign push service: HTTP surface,
// auth, and the scheduled-campaign trigger.
package pushservice

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/abdulrabbbi/friend2go-admin-panel/internal/api"
	"github.com/abdulrabbbi/friend2go-admin-panel/internal/auth"
	"github.com/abdulrabbbi/friend2go-admin-panel/pushservice/config"
)

// SweepRunner is the scheduled-campaign trigger: either the interval sweeper
// or the Pub/Sub tick consumer. It blocks until its context is cancelled.
type SweepRunner interface {
	Run(ctx context.Context)
}

type Wrapper struct {
	*microservice.BaseServer
	trigger     SweepRunner
	stopTrigger context.CancelFunc
	logger      *slog.Logger
}

// New assembles the service. All provider and storage clients are created by
// the caller and injected here; nothing reaches for ambient globals.
func New(
	cfg *config.Config,
	engine api.DispatchEngine,
	subscriber api.TopicSubscriber,
	authMW *auth.Middleware,
	trigger SweepRunner,
	logger *slog.Logger,
) (*Wrapper, error) {

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	campaignAPI := api.NewCampaignAPI(engine, subscriber, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	// Send-now requires the admin capability; topic subscription only needs
	// an authenticated caller.
	mux.Handle("POST /api/v1/campaigns/{id}/send",
		corsMiddleware(authMW.Authenticate(authMW.RequireAdmin(http.HandlerFunc(campaignAPI.SendNow)))))
	mux.Handle("POST /api/v1/topics/subscribe",
		corsMiddleware(authMW.Authenticate(http.HandlerFunc(campaignAPI.Subscribe))))

	// CORS preflight for the API namespace
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	return &Wrapper{
		BaseServer: baseServer,
		trigger:    trigger,
		logger:     logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	if w.trigger != nil {
		triggerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		w.stopTrigger = cancel
		go w.trigger.Run(triggerCtx)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	if w.stopTrigger != nil {
		w.stopTrigger()
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		return err
	}
	w.logger.Info("Service shutdown complete.")
	return nil
}
