package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// Generation lifecycle event types carried on the generation topic.
const (
	TypeGenerationCompleted = "generation.completed"
	TypeGenerationFailed    = "generation.failed"
)

// GenerationEvent is published whenever a synthesis job reaches a terminal state.
type GenerationEvent struct {
	EventID    string    `json:"eventId"`
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"userId"`
	TrackID    uuid.UUID `json:"trackId"`
	TrackTitle string    `json:"trackTitle"`
	ResultURL  string    `json:"resultUrl,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher emits generation lifecycle events.
type Publisher interface {
	PublishGeneration(ctx context.Context, event GenerationEvent) error
}

// PubSubPublisher forwards events to a Pub/Sub topic.
type PubSubPublisher struct {
	publisher *pubsub.Publisher
}

// NewPubSubPublisher wraps a Pub/Sub topic publisher.
func NewPubSubPublisher(publisher *pubsub.Publisher) (*PubSubPublisher, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubPublisher{publisher: publisher}, nil
}

// PublishGeneration sends the event and waits for broker acknowledgement.
func (p *PubSubPublisher) PublishGeneration(ctx context.Context, event GenerationEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"type": event.Type,
		},
	})
	_, err = result.Get(ctx)
	return err
}
