//go:build integration

package firestore_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	fs "github.com/abdulrabbbi/friend2go-admin-panel/internal/storage/firestore"
	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

func setupSuite(t *testing.T) (context.Context, *firestore.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	projectID := "test-campaign-store"
	conn := emulators.SetupFirestoreEmulator(t, ctx, emulators.GetDefaultFirestoreConfig(projectID))
	client, err := firestore.NewClient(ctx, projectID, conn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return ctx, client
}

func TestCampaignStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	store := fs.NewCampaignStore(client)

	t.Run("Create applies defaults and server timestamp", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "Hello", Text: "World"})
		require.NoError(t, err)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, campaign.TargetAll, created.TargetType)
		assert.Equal(t, "all", created.Topic)
		assert.Equal(t, campaign.StatusDraft, created.Status)
		assert.False(t, created.CreatedAt.IsZero())
	})

	t.Run("Get missing id maps to NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "no-such-campaign")
		require.Error(t, err)
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("Update merges a patch", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "Before"})
		require.NoError(t, err)

		updated, err := store.Update(ctx, created.ID, map[string]any{
			"title":  "After",
			"status": string(campaign.StatusScheduled),
		})
		require.NoError(t, err)
		assert.Equal(t, "After", updated.Title)
		assert.Equal(t, campaign.StatusScheduled, updated.Status)
		assert.Equal(t, created.Text, updated.Text)
	})

	t.Run("List orders newest first", func(t *testing.T) {
		first, err := store.Create(ctx, &campaign.Campaign{Title: "older"})
		require.NoError(t, err)
		second, err := store.Create(ctx, &campaign.Campaign{Title: "newer"})
		require.NoError(t, err)

		all, err := store.List(ctx)
		require.NoError(t, err)

		idxOf := func(id string) int {
			for i, c := range all {
				if c.ID == id {
					return i
				}
			}
			return -1
		}
		require.GreaterOrEqual(t, idxOf(first.ID), 0)
		require.GreaterOrEqual(t, idxOf(second.ID), 0)
		assert.Less(t, idxOf(second.ID), idxOf(first.ID))
	})

	t.Run("ListDue returns only due scheduled campaigns", func(t *testing.T) {
		past := time.Now().Add(-time.Minute)
		future := time.Now().Add(time.Hour)

		due, err := store.Create(ctx, &campaign.Campaign{
			Title: "due", Status: campaign.StatusScheduled, ScheduledAt: &past,
		})
		require.NoError(t, err)
		_, err = store.Create(ctx, &campaign.Campaign{
			Title: "later", Status: campaign.StatusScheduled, ScheduledAt: &future,
		})
		require.NoError(t, err)

		found, err := store.ListDue(ctx, time.Now(), 10)
		require.NoError(t, err)

		ids := make([]string, 0, len(found))
		for _, c := range found {
			ids = append(ids, c.ID)
		}
		assert.Contains(t, ids, due.ID)
		for _, c := range found {
			assert.Equal(t, campaign.StatusScheduled, c.Status)
		}
	})

	t.Run("Claim is first-writer-wins", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "race"})
		require.NoError(t, err)

		claimed, err := store.Claim(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusSending, claimed.Status)

		_, err = store.Claim(ctx, created.ID)
		require.Error(t, err)
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("Claim rejects malformed target type without mutating status", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "bad"})
		require.NoError(t, err)
		_, err = store.Update(ctx, created.ID, map[string]any{"targetType": "everyone"})
		require.NoError(t, err)

		_, err = store.Claim(ctx, created.ID)
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		after, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusDraft, after.Status)
	})

	t.Run("Finalize completed stamps sentAt", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "done"})
		require.NoError(t, err)
		_, err = store.Claim(ctx, created.ID)
		require.NoError(t, err)

		res := &campaign.Result{Success: 2, Failure: 1, Cleaned: 1}
		require.NoError(t, store.Finalize(ctx, created.ID, campaign.StatusCompleted, res))

		after, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusCompleted, after.Status)
		require.NotNil(t, after.Result)
		assert.Equal(t, 2, after.Result.Success)
		require.NotNil(t, after.SentAt)
	})

	t.Run("Finalize failed leaves sentAt empty", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "no tokens"})
		require.NoError(t, err)
		_, err = store.Claim(ctx, created.ID)
		require.NoError(t, err)

		require.NoError(t, store.Finalize(ctx, created.ID, campaign.StatusFailed, &campaign.Result{Error: "No tokens"}))

		after, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, campaign.StatusFailed, after.Status)
		assert.Equal(t, "No tokens", after.Result.Error)
		assert.Nil(t, after.SentAt)
	})

	t.Run("Delete removes the record", func(t *testing.T) {
		created, err := store.Create(ctx, &campaign.Campaign{Title: "gone"})
		require.NoError(t, err)
		require.NoError(t, store.Delete(ctx, created.ID))

		_, err = store.Get(ctx, created.ID)
		assert.Equal(t, codes.NotFound, status.Code(err))
	})
}

func TestUserStore_Integration(t *testing.T) {
	ctx, client := setupSuite(t)
	store := fs.NewUserStore(client)
	users := client.Collection("user")

	t.Run("Tokens reads array and single-field records", func(t *testing.T) {
		_, err := users.Doc("u-array").Set(ctx, map[string]any{"fcmTokens": []string{"tA", "tB"}})
		require.NoError(t, err)
		_, err = users.Doc("u-single").Set(ctx, map[string]any{"fcmToken": "tC"})
		require.NoError(t, err)

		tokens, err := store.Tokens(ctx, "u-array")
		require.NoError(t, err)
		assert.Equal(t, []string{"tA", "tB"}, tokens)

		tokens, err = store.Tokens(ctx, "u-single")
		require.NoError(t, err)
		assert.Equal(t, []string{"tC"}, tokens)
	})

	t.Run("Missing user contributes nothing", func(t *testing.T) {
		tokens, err := store.Tokens(ctx, "u-missing")
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("RemoveDeadTokens strips only dead tokens and is idempotent", func(t *testing.T) {
		_, err := users.Doc("u1").Set(ctx, map[string]any{"fcmTokens": []string{"tA", "tB"}})
		require.NoError(t, err)
		_, err = users.Doc("u2").Set(ctx, map[string]any{"fcmToken": "tC"})
		require.NoError(t, err)

		removed, err := store.RemoveDeadTokens(ctx, []string{"u1", "u2", "u-missing"}, []string{"tB", "tC"})
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		tokens, err := store.Tokens(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"tA"}, tokens)

		tokens, err = store.Tokens(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, tokens)

		// Second pass with the same dead set is a no-op.
		removed, err = store.RemoveDeadTokens(ctx, []string{"u1", "u2"}, []string{"tB", "tC"})
		require.NoError(t, err)
		assert.Zero(t, removed)

		tokens, err = store.Tokens(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"tA"}, tokens)
	})

	t.Run("Empty dead set is a no-op", func(t *testing.T) {
		removed, err := store.RemoveDeadTokens(ctx, []string{"u1"}, nil)
		require.NoError(t, err)
		assert.Zero(t, removed)
	})
}
