// Package dispatch contains the public contracts consumed by the campaign
// dispatch engine.
package dispatch

import (
	"context"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

// CampaignStore is the slice of campaign persistence the engine needs.
type CampaignStore interface {
	// Claim atomically moves a claimable campaign into the sending state and
	// returns it. It fails with codes.NotFound for a missing id,
	// codes.InvalidArgument for a malformed target type (no status mutation),
	// and codes.FailedPrecondition when another dispatcher got there first.
	Claim(ctx context.Context, id string) (*campaign.Campaign, error)

	// Finalize writes the terminal status and result summary. sentAt is
	// stamped only when status is completed.
	Finalize(ctx context.Context, id string, status campaign.Status, result *campaign.Result) error
}

// UserStore resolves user ids to delivery tokens and reconciles dead tokens
// back into the owning user records.
type UserStore interface {
	// Tokens returns the registered delivery tokens for a user, in stored
	// order. A missing or tokenless user yields an empty slice and no error.
	Tokens(ctx context.Context, userID string) ([]string, error)

	// RemoveDeadTokens deletes the given tokens from each listed user record
	// in a single transaction, re-reading every record at commit time. It
	// returns the number of tokens actually removed and is idempotent.
	RemoveDeadTokens(ctx context.Context, userIDs []string, dead []string) (int, error)
}

// BatchResult aggregates the per-token outcomes of one multicast call.
type BatchResult struct {
	Success int
	Failure int
	// Dead holds the tokens the provider reported as permanently invalid.
	Dead []string
}

// Sender is the push-provider boundary.
type Sender interface {
	// SendToTopic delivers one broadcast message and returns the
	// provider-assigned message id.
	SendToTopic(ctx context.Context, topic string, note campaign.Notification) (string, error)

	// SendMulticast delivers an identical payload to a batch of tokens
	// (at most the provider's multicast limit) and reports per-token outcomes.
	SendMulticast(ctx context.Context, tokens []string, note campaign.Notification) (BatchResult, error)

	// SubscribeToTopic subscribes device tokens to a provider topic.
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
}
