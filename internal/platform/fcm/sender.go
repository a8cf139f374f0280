// Package fcm implements the push-provider boundary on Firebase Cloud
// Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/campaign"
	"github.com/abdulrabbbi/friend2go-admin-panel/pkg/dispatch"
)

// MulticastLimit is the maximum token count FCM accepts per multicast call.
const MulticastLimit = 500

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
// Note: *messaging.Client automatically satisfies it.
type MessagingClient interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (*messaging.TopicManagementResponse, error)
}

type Sender struct {
	client MessagingClient
	logger *slog.Logger
}

func NewSender(client MessagingClient, logger *slog.Logger) *Sender {
	return &Sender{
		client: client,
		logger: logger.With("component", "FCMSender"),
	}
}

// SendToTopic delivers one broadcast message to a provider topic.
func (s *Sender) SendToTopic(ctx context.Context, topic string, note campaign.Notification) (string, error) {
	msg := &messaging.Message{
		Topic:        topic,
		Notification: buildNotification(note),
		Webpush:      buildWebpush(note),
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("fcm topic send failed: %w", err)
	}
	s.logger.Debug("Topic message sent", "topic", topic, "message_id", id)
	return id, nil
}

// SendMulticast delivers an identical payload to one batch of tokens and maps
// the per-token outcomes. Tokens the provider reports as permanently
// unregistered land in the Dead bucket; every other failure only counts.
func (s *Sender) SendMulticast(ctx context.Context, tokens []string, note campaign.Notification) (dispatch.BatchResult, error) {
	if len(tokens) > MulticastLimit {
		return dispatch.BatchResult{}, fmt.Errorf("multicast batch of %d exceeds provider limit %d", len(tokens), MulticastLimit)
	}

	msg := &messaging.MulticastMessage{
		Tokens:       tokens,
		Notification: buildNotification(note),
		Webpush:      buildWebpush(note),
	}

	br, err := s.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return dispatch.BatchResult{}, fmt.Errorf("fcm multicast transport failed: %w", err)
	}

	res := dispatch.BatchResult{
		Success: br.SuccessCount,
		Failure: br.FailureCount,
	}
	for idx, resp := range br.Responses {
		if resp.Success {
			continue
		}
		if ClassifyTokenError(resp.Error) == TokenDead {
			res.Dead = append(res.Dead, tokens[idx])
		}
	}
	return res, nil
}

// SubscribeToTopic subscribes device tokens to a provider topic.
func (s *Sender) SubscribeToTopic(ctx context.Context, tokens []string, topic string) error {
	resp, err := s.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return fmt.Errorf("fcm topic subscribe failed: %w", err)
	}
	if resp.FailureCount > 0 {
		return fmt.Errorf("fcm topic subscribe rejected %d of %d tokens", resp.FailureCount, len(tokens))
	}
	return nil
}

func buildNotification(note campaign.Notification) *messaging.Notification {
	return &messaging.Notification{
		Title:    note.Title,
		Body:     note.Body,
		ImageURL: note.ImageURL,
	}
}

// buildWebpush carries the delivery-priority hint and the optional deep link.
func buildWebpush(note campaign.Notification) *messaging.WebpushConfig {
	cfg := &messaging.WebpushConfig{
		Headers: map[string]string{"Urgency": "high"},
	}
	if note.Link != "" {
		cfg.FCMOptions = &messaging.WebpushFCMOptions{Link: note.Link}
	}
	return cfg
}
