package media

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// Repository handles media persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a media repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, media *models.Media) error {
	return r.db.WithContext(ctx).Create(media).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var media models.Media
	if err := r.db.WithContext(ctx).First(&media, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &media, nil
}

// ListByUser returns the user's media, newest first, excluding deleted rows.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, kind *enums.MediaKind) ([]models.Media, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND status <> ?", userID, enums.MediaStatusDeleted)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	var rows []models.Media
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkUploaded(ctx context.Context, id uuid.UUID, url *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ? AND status = ?", id, enums.MediaStatusPending).
		Updates(map[string]any{"status": enums.MediaStatusUploaded, "url": url}).Error
}

func (r *Repository) MarkDeleted(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", id).
		Update("status", enums.MediaStatusDeleted).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Media{}, "id = ?", id).Error
}

// ListStalePending returns pending uploads older than the cutoff, for cleanup.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Media, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Media
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.MediaStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
