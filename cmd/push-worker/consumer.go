package main

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox"
	"github.com/tiffinbox/tiffinbox-backend/pkg/outbox/idempotency"
)

const pushConsumerName = "push-worker"

type pushRecorder interface {
	MarkPushSent(ctx context.Context, notificationID uuid.UUID) (bool, error)
}

// Consumer receives push events from the notification subscription and records
// their delivery. The push transport itself lives outside this service; the
// worker's job ends at stamping push_sent_at.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	recorder     pushRecorder
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the push delivery consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, recorder pushRecorder, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("push recorder required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		recorder:     recorder,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventNotificationPush) {
		c.logg.Info(logCtx, "skipping non-push event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, pushConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload notifier.PushEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, pushConsumerName, eventID)
		return processResult{nack: true}
	}
	if payload.NotificationID == uuid.Nil {
		c.logg.Error(logCtx, "payload missing notification id", fmt.Errorf("notification id is nil"))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"notification_id": payload.NotificationID.String(),
		"user_id":         payload.UserID.String(),
		"type":            payload.Type,
	})

	sent, err := c.recorder.MarkPushSent(ctx, payload.NotificationID)
	if err != nil {
		c.logg.Error(logCtx, "failed to record push delivery", err)
		_ = c.idempotency.Delete(ctx, pushConsumerName, eventID)
		return processResult{nack: true}
	}
	if !sent {
		c.logg.Info(logCtx, "push already recorded")
		return processResult{ack: true}
	}

	c.logg.Info(logCtx, "push delivery recorded")
	return processResult{ack: true}
}
