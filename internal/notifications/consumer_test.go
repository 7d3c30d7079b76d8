package notifications

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsmith-ai/soundsmith-backend/internal/events"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

type recordingRepo struct {
	created []*models.Notification
	err     error
}

func (r *recordingRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.created = append(r.created, notification)
	return nil
}

type noopSubscriber struct{}

func (noopSubscriber) Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error {
	<-ctx.Done()
	return ctx.Err()
}

type memoryDedupeStore struct {
	keys map[string]bool
}

func newMemoryDedupeStore() *memoryDedupeStore {
	return &memoryDedupeStore{keys: map[string]bool{}}
}

func (m *memoryDedupeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryDedupeStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryDedupeStore) IdempotencyKey(scope, eventID string) string {
	return "ss:idem:" + scope + ":" + eventID
}

func newTestConsumer(t *testing.T, repo *recordingRepo, dedupe *memoryDedupeStore) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(repo, noopSubscriber{}, dedupe, logger.New(logger.Options{Output: io.Discard}))
	require.NoError(t, err)
	return consumer
}

func generationMessage(t *testing.T, event events.GenerationEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": event.Type},
	}
}

func TestProcessCompletedEventCreatesNotification(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newMemoryDedupeStore())

	trackID := uuid.New()
	msg := generationMessage(t, events.GenerationEvent{
		EventID:    uuid.NewString(),
		Type:       events.TypeGenerationCompleted,
		UserID:     uuid.New(),
		TrackID:    trackID,
		TrackTitle: "Midnight Drive",
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.Equal(t, enums.NotificationTypeTrackReady, created.Type)
	assert.Contains(t, created.Message, "Midnight Drive")
	require.NotNil(t, created.TrackID)
	assert.Equal(t, trackID, *created.TrackID)
}

func TestProcessFailedEventCarriesReason(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newMemoryDedupeStore())

	msg := generationMessage(t, events.GenerationEvent{
		EventID:    uuid.NewString(),
		Type:       events.TypeGenerationFailed,
		UserID:     uuid.New(),
		TrackID:    uuid.New(),
		TrackTitle: "Lost Take",
		Reason:     "prompt rejected by content filter",
	})

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	require.Len(t, repo.created, 1)
	assert.Equal(t, enums.NotificationTypeTrackFailed, repo.created[0].Type)
	assert.Contains(t, repo.created[0].Message, "prompt rejected by content filter")
}

func TestProcessDeduplicatesRedeliveries(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newMemoryDedupeStore())

	event := events.GenerationEvent{
		EventID:    uuid.NewString(),
		Type:       events.TypeGenerationCompleted,
		UserID:     uuid.New(),
		TrackID:    uuid.New(),
		TrackTitle: "Echoes",
	}

	first := consumer.process(context.Background(), generationMessage(t, event))
	second := consumer.process(context.Background(), generationMessage(t, event))
	assert.True(t, first.ack)
	assert.True(t, second.ack)
	assert.Len(t, repo.created, 1)
}

func TestProcessNacksOnPersistFailureAndClearsMarker(t *testing.T) {
	repo := &recordingRepo{err: assert.AnError}
	dedupe := newMemoryDedupeStore()
	consumer := newTestConsumer(t, repo, dedupe)

	event := events.GenerationEvent{
		EventID: uuid.NewString(),
		Type:    events.TypeGenerationFailed,
		UserID:  uuid.New(),
		TrackID: uuid.New(),
	}

	result := consumer.process(context.Background(), generationMessage(t, event))
	assert.True(t, result.nack)
	assert.Empty(t, dedupe.keys, "a failed event can be redelivered")
}

func TestProcessIgnoresUnknownEventTypes(t *testing.T) {
	repo := &recordingRepo{}
	consumer := newTestConsumer(t, repo, newMemoryDedupeStore())

	msg := &pubsub.Message{
		Data:       []byte(`{}`),
		Attributes: map[string]string{"type": "billing.invoice"},
	}

	result := consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, repo.created)
}
