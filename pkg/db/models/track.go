package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// Track is a music generation and the resulting library entry.
type Track struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	AlbumID *uuid.UUID `gorm:"column:album_id;type:uuid;index"`

	Type   enums.GenerationType   `gorm:"column:type;type:generation_type;not null"`
	Status enums.GenerationStatus `gorm:"column:status;type:generation_status;not null;default:'pending'"`

	Title           string         `gorm:"column:title;not null"`
	Tags            pq.StringArray `gorm:"column:tags;type:text[];default:ARRAY[]::text[]"`
	Prompt          *string        `gorm:"column:prompt"`
	Lyrics          *string        `gorm:"column:lyrics"`
	DurationSeconds int            `gorm:"column:duration_seconds;not null;default:0"`

	// Set when the generation is handed to the synthesis provider.
	ProviderJobID *string `gorm:"column:provider_job_id;index"`
	SourceMediaID *uuid.UUID `gorm:"column:source_media_id;type:uuid"`

	AudioURL     *string `gorm:"column:audio_url"`
	VideoURL     *string `gorm:"column:video_url"`
	ImageURL     *string `gorm:"column:image_url"`
	ErrorMessage *string `gorm:"column:error_message"`

	Visibility     enums.TrackVisibility `gorm:"column:visibility;type:track_visibility;not null;default:'private'"`
	GalleryVisible bool                  `gorm:"column:gallery_visible;not null;default:false"`

	LikeCount    int64 `gorm:"column:like_count;not null;default:0"`
	CommentCount int64 `gorm:"column:comment_count;not null;default:0"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
