package models

import (
	"time"

	"github.com/google/uuid"
)

// TrackLike records one user's like of one track.
type TrackLike struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TrackID   uuid.UUID `gorm:"column:track_id;type:uuid;not null;uniqueIndex:idx_track_user_like"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_track_user_like"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
