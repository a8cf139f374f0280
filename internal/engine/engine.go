// Package engine implements the campaign dispatch pipeline: claim the
// campaign, resolve its audience into delivery tokens, fan out in
// provider-limited batches, reconcile dead tokens, and finalize the record.
package engine

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/dispatch"
)

// noTokensReason is the terminal failure reason recorded when a userIds
// campaign resolves to an empty token list.
const noTokensReason = "No tokens"

// Engine drives one dispatch invocation end to end. Chunk sends execute
// sequentially; the only transactional write is the dead-token reconciliation
// inside the UserStore.
type Engine struct {
	campaigns dispatch.CampaignStore
	users     dispatch.UserStore
	sender    dispatch.Sender
	chunkSize int
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithChunkSize overrides the multicast batch size. Tests use this to
// exercise partitioning without thousands of tokens.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func New(campaigns dispatch.CampaignStore, users dispatch.UserStore, sender dispatch.Sender, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		campaigns: campaigns,
		users:     users,
		sender:    sender,
		chunkSize: 500,
		logger:    logger.With("component", "DispatchEngine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send dispatches one campaign. It returns the result summary on a completed
// dispatch or a NoTokens failure; any other error (missing campaign, lost
// claim race, provider transport failure) is returned to the caller.
func (e *Engine) Send(ctx context.Context, campaignID string) (*campaign.Result, error) {
	if campaignID == "" {
		return nil, status.Error(codes.InvalidArgument, "campaignId required")
	}

	c, err := e.campaigns.Claim(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	sendLogger := e.logger.With("campaign_id", c.ID, "target_type", string(c.TargetType))

	switch c.TargetType {
	case campaign.TargetAll, campaign.TargetTopic:
		return e.sendBroadcast(ctx, c, sendLogger)
	case campaign.TargetUserIDs:
		return e.sendDirect(ctx, c, sendLogger)
	}

	// Claim validates the target type, so this is unreachable unless the
	// record changed between claim and here.
	return nil, status.Errorf(codes.InvalidArgument, "campaign %s: unsupported targetType %q", c.ID, c.TargetType)
}

func (e *Engine) sendBroadcast(ctx context.Context, c *campaign.Campaign, logger *slog.Logger) (*campaign.Result, error) {
	topic := c.BroadcastTopic()

	messageID, err := e.sender.SendToTopic(ctx, topic, c.Notification())
	if err != nil {
		logger.Error("Topic send failed", "topic", topic, "err", err)
		e.finalize(ctx, c.ID, campaign.StatusFailed, &campaign.Result{Error: err.Error()}, logger)
		return nil, err
	}

	result := &campaign.Result{Topic: topic, MessageID: messageID}
	e.finalize(ctx, c.ID, campaign.StatusCompleted, result, logger)
	logger.Info("Broadcast dispatched", "topic", topic, "message_id", messageID)
	return result, nil
}

func (e *Engine) sendDirect(ctx context.Context, c *campaign.Campaign, logger *slog.Logger) (*campaign.Result, error) {
	tokens, err := e.resolveTokens(ctx, c.UserIDs)
	if err != nil {
		logger.Error("Audience resolution failed", "err", err)
		e.finalize(ctx, c.ID, campaign.StatusFailed, &campaign.Result{Error: err.Error()}, logger)
		return nil, err
	}

	if len(tokens) == 0 {
		// Terminal failure, not retried. No provider call is made.
		logger.Warn("Campaign resolved to zero tokens")
		result := &campaign.Result{Error: noTokensReason}
		e.finalize(ctx, c.ID, campaign.StatusFailed, result, logger)
		return result, nil
	}

	var success, failure int
	var dead []string

	for start := 0; start < len(tokens); start += e.chunkSize {
		end := min(start+e.chunkSize, len(tokens))
		batch, err := e.sender.SendMulticast(ctx, tokens[start:end], c.Notification())
		if err != nil {
			logger.Error("Multicast chunk failed", "offset", start, "err", err)
			e.finalize(ctx, c.ID, campaign.StatusFailed, &campaign.Result{Error: err.Error()}, logger)
			return nil, err
		}
		success += batch.Success
		failure += batch.Failure
		dead = append(dead, batch.Dead...)
	}

	if len(dead) > 0 {
		removed, err := e.users.RemoveDeadTokens(ctx, c.UserIDs, dead)
		if err != nil {
			// Delivery already happened; record completion anyway and let the
			// next dispatch pass re-flag the survivors.
			logger.Error("Dead token cleanup failed", "dead", len(dead), "err", err)
		} else {
			logger.Info("Dead tokens reconciled", "flagged", len(dead), "removed", removed)
		}
	}

	result := &campaign.Result{Success: success, Failure: failure, Cleaned: len(dead)}
	e.finalize(ctx, c.ID, campaign.StatusCompleted, result, logger)
	logger.Info("Direct dispatch complete", "tokens", len(tokens), "success", success, "failure", failure)
	return result, nil
}

// resolveTokens flattens each user's delivery tokens into one ordered
// sequence. Missing or tokenless users contribute nothing.
func (e *Engine) resolveTokens(ctx context.Context, userIDs []string) ([]string, error) {
	tokens := make([]string, 0, len(userIDs))
	for _, uid := range userIDs {
		userTokens, err := e.users.Tokens(ctx, uid)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, userTokens...)
	}
	return tokens, nil
}

func (e *Engine) finalize(ctx context.Context, id string, st campaign.Status, result *campaign.Result, logger *slog.Logger) {
	if err := e.campaigns.Finalize(ctx, id, st, result); err != nil {
		logger.Error("Campaign finalize failed", "status", string(st), "err", err)
	}
}
