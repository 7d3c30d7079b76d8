package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// Band is a user's virtual band. A user owns at most one.
type Band struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Name   string    `gorm:"column:name;not null"`

	PhotoURL    *string                 `gorm:"column:photo_url"`
	PhotoJobID  *string                 `gorm:"column:photo_job_id"`
	PhotoStatus *enums.GenerationStatus `gorm:"column:photo_status;type:generation_status"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BandMember is one of up to four positional members. Position 1 is the lead singer.
type BandMember struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BandID   uuid.UUID `gorm:"column:band_id;type:uuid;not null;uniqueIndex:idx_band_position"`
	Position int       `gorm:"column:position;not null;uniqueIndex:idx_band_position"`
	Name     string    `gorm:"column:name;not null"`
	RoleName string    `gorm:"column:role_name;not null;default:''"`

	PortraitURL    *string                 `gorm:"column:portrait_url"`
	PortraitJobID  *string                 `gorm:"column:portrait_job_id"`
	PortraitStatus *enums.GenerationStatus `gorm:"column:portrait_status;type:generation_status"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
