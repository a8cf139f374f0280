package scheduler

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub/v2"
)

// Receiver is the subset of the Pub/Sub subscriber we use.
// Note: *pubsub.Subscriber automatically satisfies it.
type Receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// PubsubTrigger runs one sweep per Pub/Sub message, for deployments where a
// Cloud Scheduler job publishes the tick instead of the service ticking
// itself. The message payload is ignored; only its arrival matters.
type PubsubTrigger struct {
	subscriber Receiver
	sweeper    *Sweeper
	logger     *slog.Logger
}

func NewPubsubTrigger(subscriber Receiver, sweeper *Sweeper, logger *slog.Logger) *PubsubTrigger {
	return &PubsubTrigger{
		subscriber: subscriber,
		sweeper:    sweeper,
		logger:     logger.With("component", "PubsubTrigger"),
	}
}

// Run blocks receiving tick messages until the context is cancelled.
func (t *PubsubTrigger) Run(ctx context.Context) {
	t.logger.Info("Pubsub sweep trigger started")
	err := t.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := t.sweeper.Sweep(ctx); err != nil {
			t.logger.Error("Sweep failed, nacking tick", "err", err)
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil && ctx.Err() == nil {
		t.logger.Error("Pubsub receive stopped unexpectedly", "err", err)
	}
}
