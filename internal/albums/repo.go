package albums

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
)

const defaultAlbumName = "My Tracks"

// Repository exposes album persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an albums repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// NewShareToken mints the opaque token used for public album links.
func NewShareToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}

// Create inserts a new album.
func (r *Repository) Create(ctx context.Context, album *models.Album) error {
	if album.ShareToken == "" {
		album.ShareToken = NewShareToken()
	}
	return r.db.WithContext(ctx).Create(album).Error
}

// CreateDefault inserts the user's default album.
func (r *Repository) CreateDefault(ctx context.Context, userID uuid.UUID) (*models.Album, error) {
	album := &models.Album{
		UserID:     userID,
		Name:       defaultAlbumName,
		IsDefault:  true,
		ShareToken: NewShareToken(),
	}
	if err := r.db.WithContext(ctx).Create(album).Error; err != nil {
		return nil, err
	}
	return album, nil
}

// FindByID loads an album by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).First(&album, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

// FindByShareToken loads an album by its public share token.
func (r *Repository) FindByShareToken(ctx context.Context, token string) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

// FindDefaultForUser returns the user's default album.
func (r *Repository) FindDefaultForUser(ctx context.Context, userID uuid.UUID) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default", userID).
		First(&album).Error; err != nil {
		return nil, err
	}
	return &album, nil
}

// ListByUser returns the user's albums, default first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Album, error) {
	var rows []models.Album
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the mutable album fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name string, coverURL *string) error {
	return r.db.WithContext(ctx).
		Model(&models.Album{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":      name,
			"cover_url": coverURL,
		}).Error
}

// Delete removes an album; tracks fall back to no album via the FK.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Album{}, "id = ?", id).Error
}

// IncrementViewCount bumps the public view counter.
func (r *Repository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Album{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}
