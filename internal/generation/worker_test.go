package generation

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundsmith-ai/soundsmith-backend/internal/events"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

type fakeWorkerRepo struct {
	mu        sync.Mutex
	active    []models.Track
	completed map[uuid.UUID]string
	failed    map[uuid.UUID]string
}

func newFakeWorkerRepo(active ...models.Track) *fakeWorkerRepo {
	return &fakeWorkerRepo{
		active:    active,
		completed: map[uuid.UUID]string{},
		failed:    map[uuid.UUID]string{},
	}
}

func (f *fakeWorkerRepo) ListActiveGenerations(ctx context.Context, limit int) ([]models.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Track, len(f.active))
	copy(out, f.active)
	return out, nil
}

func (f *fakeWorkerRepo) MarkCompleted(ctx context.Context, id uuid.UUID, audioURL string, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = audioURL
	f.removeLocked(id)
	return nil
}

func (f *fakeWorkerRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	f.removeLocked(id)
	return nil
}

func (f *fakeWorkerRepo) removeLocked(id uuid.UUID) {
	kept := f.active[:0]
	for _, track := range f.active {
		if track.ID != id {
			kept = append(kept, track)
		}
	}
	f.active = kept
}

type scriptedFetcher struct {
	mu        sync.Mutex
	snapshots []jobpoller.Snapshot
	calls     int
}

func (s *scriptedFetcher) JobStatus(ctx context.Context, jobID string) (jobpoller.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.snapshots) {
		idx = len(s.snapshots) - 1
	}
	return s.snapshots[idx], nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.GenerationEvent
	done   chan struct{}
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{done: make(chan struct{}, 8)}
}

func (c *capturingPublisher) PublishGeneration(ctx context.Context, event events.GenerationEvent) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func (c *capturingPublisher) all() []events.GenerationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.GenerationEvent, len(c.events))
	copy(out, c.events)
	return out
}

func workerTestConfig() config.GenerationConfig {
	return config.GenerationConfig{
		MusicPollInterval: time.Millisecond,
		ClaimInterval:     5 * time.Millisecond,
		ClaimBatchSize:    10,
		MaxPollAttempts:   5,
	}
}

func activeTrack(title string) models.Track {
	jobID := "job-" + uuid.NewString()
	return models.Track{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Title:         title,
		ProviderJobID: &jobID,
	}
}

func runWorker(t *testing.T, w *Worker) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not stop")
		}
	}
}

func TestWorkerCompletesGeneration(t *testing.T) {
	track := activeTrack("Night Drive")
	repo := newFakeWorkerRepo(track)
	fetcher := &scriptedFetcher{snapshots: []jobpoller.Snapshot{
		{Status: "generating"},
		{Status: "completed", ResultURL: "https://cdn.example.com/track.mp3"},
	}}
	publisher := newCapturingPublisher()
	cache := &fakeInvalidator{}

	w, err := NewWorker(WorkerParams{
		Tracks:    repo,
		Provider:  fetcher,
		Publisher: publisher,
		Cache:     cache,
		Config:    workerTestConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	stop := runWorker(t, w)
	defer stop()

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("generation never completed")
	}

	repo.mu.Lock()
	url := repo.completed[track.ID]
	repo.mu.Unlock()
	assert.Equal(t, "https://cdn.example.com/track.mp3", url)

	got := publisher.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeGenerationCompleted, got[0].Type)
	assert.Equal(t, track.ID, got[0].TrackID)
	assert.GreaterOrEqual(t, cache.calls, 1)
}

func TestWorkerFailsGenerationWithVerbatimReason(t *testing.T) {
	track := activeTrack("Rejected")
	repo := newFakeWorkerRepo(track)
	fetcher := &scriptedFetcher{snapshots: []jobpoller.Snapshot{
		{Status: "failed", ErrorMessage: "prompt rejected by content filter"},
	}}
	publisher := newCapturingPublisher()

	w, err := NewWorker(WorkerParams{
		Tracks:    repo,
		Provider:  fetcher,
		Publisher: publisher,
		Config:    workerTestConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	stop := runWorker(t, w)
	defer stop()

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("generation never failed")
	}

	repo.mu.Lock()
	reason := repo.failed[track.ID]
	repo.mu.Unlock()
	assert.Equal(t, "prompt rejected by content filter", reason)

	got := publisher.all()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeGenerationFailed, got[0].Type)
}

func TestWorkerTimesOutStuckJobs(t *testing.T) {
	track := activeTrack("Forever Pending")
	repo := newFakeWorkerRepo(track)
	fetcher := &scriptedFetcher{snapshots: []jobpoller.Snapshot{{Status: "pending"}}}
	publisher := newCapturingPublisher()

	w, err := NewWorker(WorkerParams{
		Tracks:    repo,
		Provider:  fetcher,
		Publisher: publisher,
		Config:    workerTestConfig(),
		Logger:    logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
	})
	require.NoError(t, err)

	stop := runWorker(t, w)
	defer stop()

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("stuck generation never timed out")
	}

	repo.mu.Lock()
	reason := repo.failed[track.ID]
	repo.mu.Unlock()
	assert.Equal(t, timedOutReason, reason)

	fetcher.mu.Lock()
	calls := fetcher.calls
	fetcher.mu.Unlock()
	assert.Equal(t, 5, calls)
}
