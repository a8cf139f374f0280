package campaign_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
)

func TestParseTargetType(t *testing.T) {
	for _, raw := range []string{"all", "topic", "userIds"} {
		tt, err := campaign.ParseTargetType(raw)
		require.NoError(t, err)
		assert.Equal(t, campaign.TargetType(raw), tt)
	}

	_, err := campaign.ParseTargetType("broadcast")
	assert.Error(t, err)
	_, err = campaign.ParseTargetType("")
	assert.Error(t, err)
}

func TestStatusClaimable(t *testing.T) {
	assert.True(t, campaign.StatusDraft.Claimable())
	assert.True(t, campaign.StatusScheduled.Claimable())
	assert.False(t, campaign.StatusSending.Claimable())
	assert.False(t, campaign.StatusCompleted.Claimable())
	assert.False(t, campaign.StatusFailed.Claimable())
}

func TestBroadcastTopic(t *testing.T) {
	t.Run("all target ignores topic field", func(t *testing.T) {
		c := &campaign.Campaign{TargetType: campaign.TargetAll, Topic: "promo"}
		assert.Equal(t, "all", c.BroadcastTopic())
	})

	t.Run("topic target uses topic field", func(t *testing.T) {
		c := &campaign.Campaign{TargetType: campaign.TargetTopic, Topic: "promo"}
		assert.Equal(t, "promo", c.BroadcastTopic())
	})

	t.Run("topic target with empty topic falls back", func(t *testing.T) {
		c := &campaign.Campaign{TargetType: campaign.TargetTopic}
		assert.Equal(t, "all", c.BroadcastTopic())
	})
}

func TestResultOK(t *testing.T) {
	assert.True(t, (&campaign.Result{Topic: "all", MessageID: "m1"}).OK())
	assert.True(t, (&campaign.Result{Success: 3, Failure: 1}).OK())
	assert.False(t, (&campaign.Result{Error: "No tokens"}).OK())

	var nilResult *campaign.Result
	assert.False(t, nilResult.OK())
}
