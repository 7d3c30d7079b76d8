package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/internal/events"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
)

const timedOutReason = "generation timed out"

type workerTrackRepo interface {
	ListActiveGenerations(ctx context.Context, limit int) ([]models.Track, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, audioURL string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type jobStatusFetcher interface {
	JobStatus(ctx context.Context, jobID string) (jobpoller.Snapshot, error)
}

// WorkerParams bundles the poll worker dependencies.
type WorkerParams struct {
	Tracks    workerTrackRepo
	Provider  jobStatusFetcher
	Publisher events.Publisher
	Cache     cacheInvalidator
	Config    config.GenerationConfig
	Logger    *logger.Logger
	Metrics   *metrics.PollerMetrics
}

// Worker claims in-flight generations and polls the provider until each
// reaches a terminal state.
type Worker struct {
	tracks    workerTrackRepo
	provider  jobStatusFetcher
	publisher events.Publisher
	cache     cacheInvalidator
	cfg       config.GenerationConfig
	logg      *logger.Logger
	metrics   *metrics.PollerMetrics

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
}

// NewWorker wires the poll worker.
func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Tracks == nil {
		return nil, errors.New("tracks repository required")
	}
	if params.Provider == nil {
		return nil, errors.New("provider client required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	cfg := params.Config
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 2 * time.Second
	}
	if cfg.ClaimBatchSize <= 0 {
		cfg.ClaimBatchSize = 10
	}
	if cfg.MusicPollInterval <= 0 {
		cfg.MusicPollInterval = 3 * time.Second
	}
	return &Worker{
		tracks:    params.Tracks,
		provider:  params.Provider,
		publisher: params.Publisher,
		cache:     params.Cache,
		cfg:       cfg,
		logg:      params.Logger,
		metrics:   params.Metrics,
		inflight:  map[uuid.UUID]struct{}{},
	}, nil
}

// Run claims work until the context is cancelled, then waits for active
// pollers to wind down.
func (w *Worker) Run(ctx context.Context) error {
	w.logg.Info(ctx, "generation worker started")
	ticker := time.NewTicker(w.cfg.ClaimInterval)
	defer ticker.Stop()

	w.claim(ctx)
	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logg.Info(context.WithoutCancel(ctx), "generation worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.claim(ctx)
		}
	}
}

func (w *Worker) claim(ctx context.Context) {
	rows, err := w.tracks.ListActiveGenerations(ctx, w.cfg.ClaimBatchSize)
	if err != nil {
		w.logg.Error(ctx, "failed to list active generations", err)
		return
	}
	for i := range rows {
		track := rows[i]
		if track.ProviderJobID == nil {
			continue
		}
		if !w.tryAcquire(track.ID) {
			continue
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer w.release(track.ID)
			w.poll(ctx, track)
		}()
	}
}

func (w *Worker) poll(ctx context.Context, track models.Track) {
	ctx = w.logg.WithTrackID(ctx, track.ID.String())
	ctx = w.logg.WithJobID(ctx, *track.ProviderJobID)

	jobID := *track.ProviderJobID
	poller, err := jobpoller.New(jobpoller.Config{
		Kind:        "music",
		Interval:    w.cfg.MusicPollInterval,
		MaxAttempts: w.cfg.MaxPollAttempts,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			return w.provider.JobStatus(ctx, jobID)
		},
		OnCompleted: func(ctx context.Context, resultURL string) {
			w.completeTrack(ctx, track, resultURL)
		},
		OnFailed: func(ctx context.Context, reason string) {
			w.failTrack(ctx, track, reason)
		},
		Logger:  w.logg,
		Metrics: w.metrics,
	})
	if err != nil {
		w.logg.Error(ctx, "failed to build poller", err)
		return
	}

	switch err := poller.Run(ctx); {
	case err == nil:
	case errors.Is(err, jobpoller.ErrAttemptsExhausted):
		// Terminal callbacks only fire on provider-reported outcomes,
		// so the timeout is recorded here.
		w.failTrack(context.WithoutCancel(ctx), track, timedOutReason)
	case errors.Is(err, jobpoller.ErrUnauthorized):
		// Credentials problems are operational; leave the track for the
		// stale generation sweep rather than failing user work.
		w.logg.Error(ctx, "provider rejected credentials during polling", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
	default:
		w.logg.Error(ctx, "poll loop ended unexpectedly", err)
	}
}

func (w *Worker) completeTrack(ctx context.Context, track models.Track, resultURL string) {
	if err := w.tracks.MarkCompleted(ctx, track.ID, resultURL, time.Now().UTC()); err != nil {
		w.logg.Error(ctx, "failed to mark track completed", err)
		return
	}
	if w.cache != nil {
		w.cache.InvalidateListCache(ctx, track.UserID)
	}
	w.publish(ctx, events.GenerationEvent{
		Type:       events.TypeGenerationCompleted,
		UserID:     track.UserID,
		TrackID:    track.ID,
		TrackTitle: track.Title,
		ResultURL:  resultURL,
	})
	w.logg.Info(ctx, "generation completed")
}

func (w *Worker) failTrack(ctx context.Context, track models.Track, reason string) {
	if err := w.tracks.MarkFailed(ctx, track.ID, reason); err != nil {
		w.logg.Error(ctx, "failed to mark track failed", err)
		return
	}
	if w.cache != nil {
		w.cache.InvalidateListCache(ctx, track.UserID)
	}
	w.publish(ctx, events.GenerationEvent{
		Type:       events.TypeGenerationFailed,
		UserID:     track.UserID,
		TrackID:    track.ID,
		TrackTitle: track.Title,
		Reason:     reason,
	})
	w.logg.Info(ctx, "generation failed")
}

func (w *Worker) publish(ctx context.Context, event events.GenerationEvent) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishGeneration(ctx, event); err != nil {
		w.logg.Error(ctx, "failed to publish generation event", err)
	}
}

func (w *Worker) tryAcquire(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inflight[id]; busy {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *Worker) release(id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inflight, id)
}
