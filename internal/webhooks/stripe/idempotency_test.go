package stripewebhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryIdempotencyStore struct {
	keys map[string]bool
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]bool{}}
}

func (m *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, eventID string) string {
	return "ss:idem:" + scope + ":" + eventID
}

func TestIdempotencyGuardDeduplicates(t *testing.T) {
	store := newMemoryIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe")
	require.NoError(t, err)

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestIdempotencyGuardDeleteReopensEvent(t *testing.T) {
	store := newMemoryIdempotencyStore()
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "evt_retry")
	require.NoError(t, err)
	require.NoError(t, guard.Delete(context.Background(), "evt_retry"))

	seen, err := guard.CheckAndMark(context.Background(), "evt_retry")
	require.NoError(t, err)
	assert.False(t, seen, "a deleted marker allows redelivery")
}

func TestIdempotencyGuardRequiresEventID(t *testing.T) {
	guard, err := NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, "stripe")
	require.NoError(t, err)

	_, err = guard.CheckAndMark(context.Background(), "")
	assert.Error(t, err)
}
