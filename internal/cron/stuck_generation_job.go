package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

const (
	stuckGenerationMaxAge    = 2 * time.Hour
	stuckGenerationBatchSize = 500
	stuckGenerationReason    = "generation timed out"
)

type stuckGenerationRepo interface {
	ListStuckGenerations(ctx context.Context, cutoff time.Time, limit int) ([]models.Track, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// StuckGenerationJobParams configure the stale generation sweep.
type StuckGenerationJobParams struct {
	Logger *logger.Logger
	Tracks stuckGenerationRepo
	MaxAge time.Duration
}

// NewStuckGenerationJob fails tracks that never reached a terminal status.
// Worker crashes and provider outages both leave rows stuck in pending or
// generating; this sweep is what unsticks the owner's quota view.
func NewStuckGenerationJob(params StuckGenerationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Tracks == nil {
		return nil, fmt.Errorf("tracks repository required")
	}
	maxAge := params.MaxAge
	if maxAge <= 0 {
		maxAge = stuckGenerationMaxAge
	}
	return &stuckGenerationJob{
		logg:   params.Logger,
		tracks: params.Tracks,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

type stuckGenerationJob struct {
	logg   *logger.Logger
	tracks stuckGenerationRepo
	maxAge time.Duration
	now    func() time.Time
}

func (j *stuckGenerationJob) Name() string { return "stuck-generation-sweep" }

func (j *stuckGenerationJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	rows, err := j.tracks.ListStuckGenerations(ctx, cutoff, stuckGenerationBatchSize)
	if err != nil {
		return fmt.Errorf("query stuck generations: %w", err)
	}

	var failed int
	for _, track := range rows {
		if err := j.tracks.MarkFailed(ctx, track.ID, stuckGenerationReason); err != nil {
			return fmt.Errorf("mark track %s failed: %w", track.ID, err)
		}
		failed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"candidates":    len(rows),
		"tracks_failed": failed,
	})
	j.logg.Info(logCtx, "stuck generation sweep complete")
	return nil
}
