package tracks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

// ListFilters narrows a user's track listing.
type ListFilters struct {
	AlbumID *uuid.UUID
	Status  *enums.GenerationStatus
}

// Page is one cursor page of tracks.
type Page struct {
	Tracks     []models.Track
	NextCursor string
}

// Repository exposes track persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tracks repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new track row.
func (r *Repository) Create(ctx context.Context, track *models.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

// FindByID loads a track by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	var track models.Track
	if err := r.db.WithContext(ctx).First(&track, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &track, nil
}

// ListByUser returns a cursor page of the user's tracks, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filters.AlbumID != nil {
		q = q.Where("album_id = ?", *filters.AlbumID)
	}
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	return r.page(q, params.Limit, cursor)
}

// ListGallery returns the public community feed of completed tracks.
func (r *Repository) ListGallery(ctx context.Context, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Where("visibility = ?", enums.TrackVisibilityPublic).
		Where("gallery_visible").
		Where("status = ?", enums.GenerationStatusCompleted)
	return r.page(q, params.Limit, cursor)
}

func (r *Repository) page(q *gorm.DB, limit int, cursor *pagination.Cursor) (*Page, error) {
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	normalized := pagination.NormalizeLimit(limit)
	var rows []models.Track
	if err := q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &Page{}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	page.Tracks = rows
	return page, nil
}

// ListPublicByAlbum returns an album's publicly visible completed tracks.
func (r *Repository) ListPublicByAlbum(ctx context.Context, albumID uuid.UUID) ([]models.Track, error) {
	var rows []models.Track
	if err := r.db.WithContext(ctx).
		Where("album_id = ?", albumID).
		Where("visibility = ?", enums.TrackVisibilityPublic).
		Where("status = ?", enums.GenerationStatusCompleted).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the mutable track fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes a track and cascades its likes and comments via FKs.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Track{}, "id = ?", id).Error
}

// MarkGenerating records the provider job handle and flips the status.
func (r *Repository) MarkGenerating(ctx context.Context, id uuid.UUID, providerJobID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          enums.GenerationStatusGenerating,
			"provider_job_id": providerJobID,
		}).Error
}

// MarkCompleted stores the synthesized asset URL and completion time.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID, audioURL string, completedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       enums.GenerationStatusCompleted,
			"audio_url":    audioURL,
			"completed_at": completedAt,
		}).Error
}

// MarkFailed stores the provider error exactly as reported.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        enums.GenerationStatusFailed,
			"error_message": reason,
		}).Error
}

// AdjustLikeCount applies a like-count delta, clamped at zero by the schema.
func (r *Repository) AdjustLikeCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		UpdateColumn("like_count", gorm.Expr("like_count + ?", delta)).Error
}

// AdjustCommentCount applies a comment-count delta.
func (r *Repository) AdjustCommentCount(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("id = ?", id).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta)).Error
}

// ListActiveGenerations returns generating tracks with a provider job handle.
func (r *Repository) ListActiveGenerations(ctx context.Context, limit int) ([]models.Track, error) {
	var rows []models.Track
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.GenerationStatusGenerating).
		Where("provider_job_id IS NOT NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStuckGenerations returns non-terminal tracks older than the cutoff.
func (r *Repository) ListStuckGenerations(ctx context.Context, cutoff time.Time, limit int) ([]models.Track, error) {
	var rows []models.Track
	if err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.GenerationStatus{enums.GenerationStatusPending, enums.GenerationStatusGenerating}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByStatus groups the track population by generation status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.GenerationStatus]int64, error) {
	type row struct {
		Status enums.GenerationStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Track{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.GenerationStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Total
	}
	return out, nil
}
