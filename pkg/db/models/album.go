package models

import (
	"time"

	"github.com/google/uuid"
)

// Album groups a user's tracks. Every user has exactly one default album.
type Album struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CoverURL  *string   `gorm:"column:cover_url"`
	IsDefault bool      `gorm:"column:is_default;not null;default:false"`

	// Opaque token granting unauthenticated read access.
	ShareToken string `gorm:"column:share_token;not null;uniqueIndex"`
	ViewCount  int64  `gorm:"column:view_count;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
