// Package firestore persists campaigns and user records in Google Cloud
// Firestore. Collection and field names match the documents the admin console
// reads and writes.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

const campaignCollection = "notificationCampaigns"

// CampaignStore implements campaign persistence on Firestore.
type CampaignStore struct {
	client *firestore.Client
}

func NewCampaignStore(client *firestore.Client) *CampaignStore {
	return &CampaignStore{client: client}
}

// Create persists a new campaign with a generated id and server-side
// createdAt, applying required-field defaults. The stored record is read back
// so the caller sees the resolved timestamp.
func (s *CampaignStore) Create(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	if c.TargetType == "" {
		c.TargetType = campaign.TargetAll
	}
	if c.Topic == "" {
		c.Topic = campaign.DefaultTopic
	}
	if c.Status == "" {
		c.Status = campaign.StatusDraft
	}
	if c.UserIDs == nil {
		c.UserIDs = []string{}
	}

	ref := s.collection().Doc(uuid.NewString())
	if _, err := ref.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("campaign create failed: %w", err)
	}
	return s.Get(ctx, ref.ID)
}

// Get returns one campaign. A missing id maps to codes.NotFound.
func (s *CampaignStore) Get(ctx context.Context, id string) (*campaign.Campaign, error) {
	snap, err := s.collection().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, status.Errorf(codes.NotFound, "campaign %s not found", id)
		}
		return nil, fmt.Errorf("campaign read failed: %w", err)
	}
	return decode(snap)
}

// Update merges a field patch into an existing campaign and returns the
// merged record.
func (s *CampaignStore) Update(ctx context.Context, id string, patch map[string]any) (*campaign.Campaign, error) {
	updates := make([]firestore.Update, 0, len(patch))
	for path, value := range patch {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	if _, err := s.collection().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, status.Errorf(codes.NotFound, "campaign %s not found", id)
		}
		return nil, fmt.Errorf("campaign update failed: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete removes a campaign. Deleting a missing id is a no-op.
func (s *CampaignStore) Delete(ctx context.Context, id string) error {
	if _, err := s.collection().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("campaign delete failed: %w", err)
	}
	return nil
}

// List returns all campaigns, newest first.
func (s *CampaignStore) List(ctx context.Context) ([]*campaign.Campaign, error) {
	iter := s.collection().OrderBy("createdAt", firestore.Desc).Documents(ctx)
	return collect(iter)
}

// ListDue returns up to limit scheduled campaigns whose scheduledAt has
// passed, for the scheduler sweep.
func (s *CampaignStore) ListDue(ctx context.Context, now time.Time, limit int) ([]*campaign.Campaign, error) {
	iter := s.collection().
		Where("status", "==", string(campaign.StatusScheduled)).
		Where("scheduledAt", "<=", now).
		Limit(limit).
		Documents(ctx)
	return collect(iter)
}

// Claim transactionally moves a claimable campaign into the sending state.
// The target type is validated inside the transaction so a malformed campaign
// surfaces as invalid-argument with no status mutation, and a concurrent
// claimer loses with failed-precondition (first-writer-wins).
func (s *CampaignStore) Claim(ctx context.Context, id string) (*campaign.Campaign, error) {
	ref := s.collection().Doc(id)
	var claimed *campaign.Campaign

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return status.Errorf(codes.NotFound, "campaign %s not found", id)
			}
			return err
		}
		c, err := decode(snap)
		if err != nil {
			return err
		}
		if _, err := campaign.ParseTargetType(string(c.TargetType)); err != nil {
			return status.Errorf(codes.InvalidArgument, "campaign %s: %v", id, err)
		}
		if !c.Status.Claimable() {
			return status.Errorf(codes.FailedPrecondition, "campaign %s is %s, not claimable", id, c.Status)
		}
		c.Status = campaign.StatusSending
		claimed = c
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(campaign.StatusSending)},
		})
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Finalize writes the terminal status and result. This is the single point
// where a dispatch attempt becomes durable; sentAt is stamped only on
// completed.
func (s *CampaignStore) Finalize(ctx context.Context, id string, st campaign.Status, result *campaign.Result) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "result", Value: result},
	}
	if st == campaign.StatusCompleted {
		updates = append(updates, firestore.Update{Path: "sentAt", Value: firestore.ServerTimestamp})
	}
	if _, err := s.collection().Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("campaign finalize failed: %w", err)
	}
	return nil
}

func (s *CampaignStore) collection() *firestore.CollectionRef {
	return s.client.Collection(campaignCollection)
}

func decode(snap *firestore.DocumentSnapshot) (*campaign.Campaign, error) {
	var c campaign.Campaign
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("campaign %s decode failed: %w", snap.Ref.ID, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}

func collect(iter *firestore.DocumentIterator) ([]*campaign.Campaign, error) {
	defer iter.Stop()

	out := make([]*campaign.Campaign, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("campaign iteration failed: %w", err)
		}
		c, err := decode(snap)
		if err != nil {
			// Skip corrupt rows rather than failing the whole listing.
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
