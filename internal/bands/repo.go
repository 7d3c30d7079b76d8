package bands

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// Repository exposes band persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a bands repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBand inserts a band; the schema enforces one band per user.
func (r *Repository) CreateBand(ctx context.Context, band *models.Band) error {
	return r.db.WithContext(ctx).Create(band).Error
}

// FindBandByUser loads the user's band.
func (r *Repository) FindBandByUser(ctx context.Context, userID uuid.UUID) (*models.Band, error) {
	var band models.Band
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&band).Error; err != nil {
		return nil, err
	}
	return &band, nil
}

// FindBandByID loads a band by its UUID.
func (r *Repository) FindBandByID(ctx context.Context, id uuid.UUID) (*models.Band, error) {
	var band models.Band
	if err := r.db.WithContext(ctx).First(&band, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &band, nil
}

// UpdateBandName renames the band.
func (r *Repository) UpdateBandName(ctx context.Context, id uuid.UUID, name string) error {
	return r.db.WithContext(ctx).
		Model(&models.Band{}).
		Where("id = ?", id).
		UpdateColumn("name", name).Error
}

// SetBandPhotoJob records a submitted band photo generation.
func (r *Repository) SetBandPhotoJob(ctx context.Context, id uuid.UUID, jobID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Band{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"photo_job_id": jobID,
			"photo_status": enums.GenerationStatusGenerating,
		}).Error
}

// SetBandPhotoResult stores a finished band photo.
func (r *Repository) SetBandPhotoResult(ctx context.Context, id uuid.UUID, photoURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.Band{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"photo_url":    photoURL,
			"photo_status": enums.GenerationStatusCompleted,
		}).Error
}

// SetBandPhotoFailed marks a band photo generation as failed.
func (r *Repository) SetBandPhotoFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Band{}).
		Where("id = ?", id).
		UpdateColumn("photo_status", enums.GenerationStatusFailed).Error
}

// CreateMember inserts a member; the schema rejects duplicate positions.
func (r *Repository) CreateMember(ctx context.Context, member *models.BandMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// FindMemberByID loads a member by its UUID.
func (r *Repository) FindMemberByID(ctx context.Context, id uuid.UUID) (*models.BandMember, error) {
	var member models.BandMember
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// ListMembers returns the band's members ordered by position.
func (r *Repository) ListMembers(ctx context.Context, bandID uuid.UUID) ([]models.BandMember, error) {
	var rows []models.BandMember
	if err := r.db.WithContext(ctx).
		Where("band_id = ?", bandID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateMember writes the mutable member fields.
func (r *Repository) UpdateMember(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.BandMember{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteMember removes a member, freeing its position slot.
func (r *Repository) DeleteMember(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BandMember{}, "id = ?", id).Error
}

// SetMemberPortraitJob records a submitted portrait generation.
func (r *Repository) SetMemberPortraitJob(ctx context.Context, id uuid.UUID, jobID string) error {
	return r.db.WithContext(ctx).
		Model(&models.BandMember{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"portrait_job_id": jobID,
			"portrait_status": enums.GenerationStatusGenerating,
		}).Error
}

// SetMemberPortraitResult stores a finished portrait.
func (r *Repository) SetMemberPortraitResult(ctx context.Context, id uuid.UUID, portraitURL string) error {
	return r.db.WithContext(ctx).
		Model(&models.BandMember{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"portrait_url":    portraitURL,
			"portrait_status": enums.GenerationStatusCompleted,
		}).Error
}

// SetMemberPortraitFailed marks a portrait generation as failed.
func (r *Repository) SetMemberPortraitFailed(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.BandMember{}).
		Where("id = ?", id).
		UpdateColumn("portrait_status", enums.GenerationStatusFailed).Error
}
