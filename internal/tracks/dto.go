package tracks

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// TrackDTO is the track shape returned to clients.
type TrackDTO struct {
	ID              uuid.UUID              `json:"id"`
	UserID          uuid.UUID              `json:"user_id"`
	AlbumID         *uuid.UUID             `json:"album_id,omitempty"`
	Type            enums.GenerationType   `json:"type"`
	Status          enums.GenerationStatus `json:"status"`
	Title           string                 `json:"title"`
	Tags            []string               `json:"tags"`
	Prompt          *string                `json:"prompt,omitempty"`
	Lyrics          *string                `json:"lyrics,omitempty"`
	DurationSeconds int                    `json:"duration_seconds"`
	AudioURL        *string                `json:"audio_url,omitempty"`
	VideoURL        *string                `json:"video_url,omitempty"`
	ImageURL        *string                `json:"image_url,omitempty"`
	ErrorMessage    *string                `json:"error_message,omitempty"`
	Visibility      enums.TrackVisibility  `json:"visibility"`
	GalleryVisible  bool                   `json:"gallery_visible"`
	LikeCount       int64                  `json:"like_count"`
	CommentCount    int64                  `json:"comment_count"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// PublicTrackDTO hides owner-only fields for gallery and share-link reads.
type PublicTrackDTO struct {
	ID              uuid.UUID            `json:"id"`
	Type            enums.GenerationType `json:"type"`
	Title           string               `json:"title"`
	Tags            []string             `json:"tags"`
	DurationSeconds int                  `json:"duration_seconds"`
	AudioURL        *string              `json:"audio_url,omitempty"`
	ImageURL        *string              `json:"image_url,omitempty"`
	LikeCount       int64                `json:"like_count"`
	CommentCount    int64                `json:"comment_count"`
	CreatedAt       time.Time            `json:"created_at"`
}

// FromModel converts a persisted track into its API shape.
func FromModel(t *models.Track) TrackDTO {
	return TrackDTO{
		ID:              t.ID,
		UserID:          t.UserID,
		AlbumID:         t.AlbumID,
		Type:            t.Type,
		Status:          t.Status,
		Title:           t.Title,
		Tags:            t.Tags,
		Prompt:          t.Prompt,
		Lyrics:          t.Lyrics,
		DurationSeconds: t.DurationSeconds,
		AudioURL:        t.AudioURL,
		VideoURL:        t.VideoURL,
		ImageURL:        t.ImageURL,
		ErrorMessage:    t.ErrorMessage,
		Visibility:      t.Visibility,
		GalleryVisible:  t.GalleryVisible,
		LikeCount:       t.LikeCount,
		CommentCount:    t.CommentCount,
		CompletedAt:     t.CompletedAt,
		CreatedAt:       t.CreatedAt,
	}
}

// PublicFromModel converts a track into the unauthenticated shape.
func PublicFromModel(t *models.Track) PublicTrackDTO {
	return PublicTrackDTO{
		ID:              t.ID,
		Type:            t.Type,
		Title:           t.Title,
		Tags:            t.Tags,
		DurationSeconds: t.DurationSeconds,
		AudioURL:        t.AudioURL,
		ImageURL:        t.ImageURL,
		LikeCount:       t.LikeCount,
		CommentCount:    t.CommentCount,
		CreatedAt:       t.CreatedAt,
	}
}
