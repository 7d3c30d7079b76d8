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
	pendingMediaRetentionDays = 7
	pendingMediaBatchSize     = 100
)

type pendingMediaRepo interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type mediaObjectStore interface {
	DefaultBucket() string
	DeleteObject(ctx context.Context, bucket, object string) error
}

// PendingMediaCleanupJobParams configure the abandoned upload sweep.
type PendingMediaCleanupJobParams struct {
	Logger        *logger.Logger
	Media         pendingMediaRepo
	Store         mediaObjectStore
	RetentionDays int
}

// NewPendingMediaCleanupJob removes uploads that were presigned but never
// finalized. The row is hard-deleted since nothing ever referenced it, and
// the bucket object is removed in case the client uploaded without calling
// finalize.
func NewPendingMediaCleanupJob(params PendingMediaCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("object store required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = pendingMediaRetentionDays
	}
	return &pendingMediaCleanupJob{
		logg:          params.Logger,
		media:         params.Media,
		store:         params.Store,
		retentionDays: retention,
		now:           time.Now,
	}, nil
}

type pendingMediaCleanupJob struct {
	logg          *logger.Logger
	media         pendingMediaRepo
	store         mediaObjectStore
	retentionDays int
	now           func() time.Time
}

func (j *pendingMediaCleanupJob) Name() string { return "pending-media-cleanup" }

func (j *pendingMediaCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retentionDays) * 24 * time.Hour)
	rows, err := j.media.ListStalePending(ctx, cutoff, pendingMediaBatchSize)
	if err != nil {
		return fmt.Errorf("query stale pending media: %w", err)
	}

	bucket := j.store.DefaultBucket()
	var deleted int
	for _, row := range rows {
		if err := j.store.DeleteObject(ctx, bucket, row.GCSKey); err != nil {
			// The object usually does not exist for an abandoned presign.
			rowCtx := j.logg.WithField(ctx, "media_id", row.ID.String())
			j.logg.Warn(rowCtx, "failed to delete stale upload object")
		}
		if err := j.media.Delete(ctx, row.ID); err != nil {
			return fmt.Errorf("delete media row %s: %w", row.ID, err)
		}
		deleted++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retentionDays,
		"candidates":     len(rows),
		"media_deleted":  deleted,
	})
	j.logg.Info(logCtx, "pending media cleanup complete")
	return nil
}
