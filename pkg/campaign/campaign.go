// Package campaign contains the domain model for notification campaigns.
// Field names mirror the documents the admin console writes to Firestore.
package campaign

import (
	"fmt"
	"time"
)

// TargetType discriminates how a campaign's audience is resolved.
type TargetType string

const (
	// TargetAll broadcasts to the provider-level "all" topic.
	TargetAll TargetType = "all"
	// TargetTopic broadcasts to a named provider topic.
	TargetTopic TargetType = "topic"
	// TargetUserIDs fans out to the delivery tokens of an explicit user list.
	TargetUserIDs TargetType = "userIds"
)

// ParseTargetType validates a raw target type string.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetAll, TargetTopic, TargetUserIDs:
		return TargetType(s), nil
	}
	return "", fmt.Errorf("unsupported targetType %q", s)
}

// Status tracks a campaign through its lifecycle. Transitions are forward-only
// except draft->scheduled, which the admin console performs before dispatch.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	// StatusSending is the claim state: exactly one dispatcher may move a
	// campaign from draft/scheduled to sending.
	StatusSending   Status = "sending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Claimable reports whether a dispatch attempt may claim the campaign.
func (s Status) Claimable() bool {
	return s == StatusDraft || s == StatusScheduled
}

// DefaultTopic is the broadcast topic every device subscribes to.
const DefaultTopic = "all"

// Campaign is a single notification intent with a target and content.
type Campaign struct {
	ID          string     `firestore:"-" json:"_id"`
	Title       string     `firestore:"title" json:"title"`
	Text        string     `firestore:"text" json:"text"`
	ImageURL    string     `firestore:"imageUrl" json:"imageUrl"`
	Link        string     `firestore:"link" json:"link"`
	TargetType  TargetType `firestore:"targetType" json:"targetType"`
	Topic       string     `firestore:"topic" json:"topic"`
	UserIDs     []string   `firestore:"userIds" json:"userIds"`
	Status      Status     `firestore:"status" json:"status"`
	ScheduledAt *time.Time `firestore:"scheduledAt" json:"scheduledAt,omitempty"`
	Result      *Result    `firestore:"result" json:"result,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt,serverTimestamp" json:"createdAt"`
	SentAt      *time.Time `firestore:"sentAt" json:"sentAt,omitempty"`
}

// Notification is the payload delivered to every recipient of the campaign.
type Notification struct {
	Title    string
	Body     string
	ImageURL string
	Link     string
}

// Notification builds the delivery payload from the campaign content.
func (c *Campaign) Notification() Notification {
	return Notification{
		Title:    c.Title,
		Body:     c.Text,
		ImageURL: c.ImageURL,
		Link:     c.Link,
	}
}

// BroadcastTopic returns the provider topic for the all/topic target types.
// An empty topic name falls back to the default broadcast topic.
func (c *Campaign) BroadcastTopic() string {
	if c.TargetType == TargetTopic && c.Topic != "" {
		return c.Topic
	}
	return DefaultTopic
}

// Result is the terminal outcome summary, written once per dispatch attempt.
// Topic sends populate Topic/MessageID; direct sends populate the counts;
// failures populate Error.
type Result struct {
	Topic     string `firestore:"topic,omitempty" json:"topic,omitempty"`
	MessageID string `firestore:"messageId,omitempty" json:"messageId,omitempty"`
	Success   int    `firestore:"success,omitempty" json:"success,omitempty"`
	Failure   int    `firestore:"failure,omitempty" json:"failure,omitempty"`
	Cleaned   int    `firestore:"cleaned,omitempty" json:"cleaned,omitempty"`
	Error     string `firestore:"error,omitempty" json:"error,omitempty"`
}

// OK reports whether the result describes a successful dispatch.
func (r *Result) OK() bool {
	return r != nil && r.Error == ""
}
