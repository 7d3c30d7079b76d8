package likes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	dbpkg "github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

// Service toggles community likes on tracks.
type Service interface {
	Toggle(ctx context.Context, userID, trackID uuid.UUID) (*ToggleResult, error)
}

// ToggleResult reflects the like state after a toggle.
type ToggleResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

type trackFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tracks trackFinder
	db     txRunner
}

// NewService wires like dependencies.
func NewService(trackRepo trackFinder, db txRunner) (Service, error) {
	if trackRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracks repository required")
	}
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{tracks: trackRepo, db: db}, nil
}

// Toggle likes the track if the user has not liked it yet, otherwise removes
// the like. The counter mutation rides in the same transaction as the row.
func (s *service) Toggle(ctx context.Context, userID, trackID uuid.UUID) (*ToggleResult, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}

	track, err := s.tracks.FindByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	if track.Visibility != enums.TrackVisibilityPublic && track.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
	}

	result := &ToggleResult{}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		likeRepo := NewRepository(tx)
		trackRepo := tracks.NewRepository(tx)

		removed, err := likeRepo.Delete(ctx, trackID, userID)
		if err != nil {
			return err
		}
		if removed {
			result.Liked = false
			result.LikeCount = track.LikeCount - 1
			return trackRepo.AdjustLikeCount(ctx, trackID, -1)
		}

		if err := likeRepo.Create(ctx, &models.TrackLike{TrackID: trackID, UserID: userID}); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				// Concurrent toggle already inserted the like.
				result.Liked = true
				result.LikeCount = track.LikeCount
				return nil
			}
			return err
		}
		result.Liked = true
		result.LikeCount = track.LikeCount + 1
		return trackRepo.AdjustLikeCount(ctx, trackID, 1)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "toggle like")
	}
	if result.LikeCount < 0 {
		result.LikeCount = 0
	}
	return result, nil
}
