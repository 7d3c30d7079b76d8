package likes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
)

// Repository exposes track like persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a likes repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create records a like; the schema rejects duplicates per user and track.
func (r *Repository) Create(ctx context.Context, like *models.TrackLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// Delete removes a like and reports whether one existed.
func (r *Repository) Delete(ctx context.Context, trackID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("track_id = ? AND user_id = ?", trackID, userID).
		Delete(&models.TrackLike{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Exists reports whether the user already liked the track.
func (r *Repository) Exists(ctx context.Context, trackID, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TrackLike{}).
		Where("track_id = ? AND user_id = ?", trackID, userID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
