package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/soundsmith-ai/soundsmith-backend/internal/events"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
)

const (
	consumerScope = "generation-notifications"

	// Markers only need to outlive Pub/Sub's redelivery window.
	dedupeTTL = 24 * time.Hour
)

type creatorRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns generation lifecycle events into in-app notifications.
type Consumer struct {
	repo   creatorRepository
	sub    subscriber
	dedupe redis.IdempotencyStore
	logg   *logger.Logger
}

// NewConsumer builds a generation notification consumer.
func NewConsumer(repo creatorRepository, sub subscriber, dedupe redis.IdempotencyStore, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if sub == nil {
		return nil, fmt.Errorf("generation subscription required")
	}
	if dedupe == nil {
		return nil, fmt.Errorf("dedupe store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:   repo,
		sub:    sub,
		dedupe: dedupe,
		logg:   logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
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

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != events.TypeGenerationCompleted && eventType != events.TypeGenerationFailed {
		c.logg.Info(logCtx, "skipping non-generation event")
		return processResult{ack: true}
	}

	var event events.GenerationEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logg.Error(logCtx, "failed to decode generation event", err)
		return processResult{ack: true}
	}
	if event.EventID == "" {
		c.logg.Warn(logCtx, "generation event missing id")
		return processResult{ack: true}
	}

	key := c.dedupe.IdempotencyKey(consumerScope, event.EventID)
	fresh, err := c.dedupe.SetNX(ctx, key, "1", dedupeTTL)
	if err != nil {
		c.logg.Error(logCtx, "dedupe check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithTrackID(logCtx, event.TrackID.String())
	if err := c.repo.Create(ctx, buildNotification(event)); err != nil {
		c.logg.Error(logCtx, "persist notification failed", err)
		_ = c.dedupe.Del(ctx, key)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification created")
	return processResult{ack: true}
}

func buildNotification(event events.GenerationEvent) *models.Notification {
	trackID := event.TrackID
	notification := &models.Notification{
		UserID:  event.UserID,
		TrackID: &trackID,
	}
	if event.Type == events.TypeGenerationCompleted {
		notification.Type = enums.NotificationTypeTrackReady
		notification.Title = "Your track is ready"
		notification.Message = fmt.Sprintf("%q finished generating", event.TrackTitle)
		return notification
	}
	notification.Type = enums.NotificationTypeTrackFailed
	notification.Title = "Generation failed"
	if event.Reason != "" {
		notification.Message = fmt.Sprintf("%q could not be generated: %s", event.TrackTitle, event.Reason)
	} else {
		notification.Message = fmt.Sprintf("%q could not be generated", event.TrackTitle)
	}
	return notification
}
