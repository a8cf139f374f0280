// Package scheduler periodically dispatches due scheduled campaigns.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

// DueLister finds scheduled campaigns whose dispatch time has passed.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*campaign.Campaign, error)
}

// CampaignSender runs one campaign through the dispatch pipeline.
type CampaignSender interface {
	Send(ctx context.Context, campaignID string) (*campaign.Result, error)
}

// Sweeper polls the campaign store on a fixed interval and dispatches each
// due campaign through the same pipeline as a manual send. One campaign's
// failure never prevents the rest of the tick's batch from being attempted,
// and no retry is scheduled for a failed campaign.
type Sweeper struct {
	campaigns DueLister
	sender    CampaignSender
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(campaigns DueLister, sender CampaignSender, interval time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Sweeper{
		campaigns: campaigns,
		sender:    sender,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("component", "Sweeper"),
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Sweeper started", "interval", s.interval, "batch_size", s.batchSize)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Sweep failed", "err", err)
			}
		}
	}
}

// Sweep performs one pass over the due campaigns. It returns an error only
// when the due query itself fails; per-campaign dispatch errors are logged
// individually.
func (s *Sweeper) Sweep(ctx context.Context) error {
	due, err := s.campaigns.ListDue(ctx, time.Now(), s.batchSize)
	if err != nil {
		return fmt.Errorf("due campaign query failed: %w", err)
	}

	for _, c := range due {
		if _, err := s.sender.Send(ctx, c.ID); err != nil {
			if status.Code(err) == codes.FailedPrecondition {
				// Lost the claim race to a manual send; nothing to do.
				s.logger.Debug("Campaign already claimed", "campaign_id", c.ID)
				continue
			}
			s.logger.Error("Scheduled send failed", "campaign_id", c.ID, "err", err)
			continue
		}
		s.logger.Info("Scheduled campaign dispatched", "campaign_id", c.ID)
	}
	return nil
}
