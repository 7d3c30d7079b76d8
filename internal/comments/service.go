package comments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

const maxBodyLength = 1000

// Service manages track comments.
type Service interface {
	Create(ctx context.Context, userID, trackID uuid.UUID, req CreateCommentRequest) (*CommentDTO, error)
	List(ctx context.Context, trackID uuid.UUID, params pagination.Params) (*ListResult, error)
	Delete(ctx context.Context, userID, commentID uuid.UUID) error
}

// CreateCommentRequest carries a new comment body.
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=1000"`
}

// CommentDTO is the comment shape returned to clients.
type CommentDTO struct {
	ID         uuid.UUID `json:"id"`
	TrackID    uuid.UUID `json:"track_id"`
	UserID     uuid.UUID `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListResult is one page of a track's comments.
type ListResult struct {
	Comments   []CommentDTO `json:"comments"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type commentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByTrack(ctx context.Context, trackID uuid.UUID, params pagination.Params) (*Page, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type trackFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   commentRepository
	tracks trackFinder
	db     txRunner
}

// NewService wires comment dependencies.
func NewService(repo commentRepository, trackRepo trackFinder, db txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "comments repository required")
	}
	if trackRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracks repository required")
	}
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, tracks: trackRepo, db: db}, nil
}

func (s *service) Create(ctx context.Context, userID, trackID uuid.UUID, req CreateCommentRequest) (*CommentDTO, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body required")
	}
	if len(body) > maxBodyLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body too long")
	}

	track, err := s.visibleTrack(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{TrackID: track.ID, UserID: userID, Body: body}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).Create(ctx, comment); err != nil {
			return err
		}
		return tracks.NewRepository(tx).AdjustCommentCount(ctx, track.ID, 1)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create comment")
	}

	return &CommentDTO{
		ID:        comment.ID,
		TrackID:   comment.TrackID,
		UserID:    comment.UserID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}, nil
}

func (s *service) List(ctx context.Context, trackID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	page, err := s.repo.ListByTrack(ctx, trackID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list comments")
	}
	out := &ListResult{
		Comments:   make([]CommentDTO, 0, len(page.Comments)),
		NextCursor: page.NextCursor,
	}
	for _, row := range page.Comments {
		out.Comments = append(out.Comments, CommentDTO{
			ID:         row.ID,
			TrackID:    row.TrackID,
			UserID:     row.UserID,
			AuthorName: row.AuthorName,
			Body:       row.Body,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

// Delete removes a comment. Only the author may delete it.
func (s *service) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	if userID == uuid.Nil || commentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "comment id required")
	}
	comment, err := s.repo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "comment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comment")
	}
	if comment.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the author can delete a comment")
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := NewRepository(tx).Delete(ctx, comment.ID); err != nil {
			return err
		}
		return tracks.NewRepository(tx).AdjustCommentCount(ctx, comment.TrackID, -1)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete comment")
	}
	return nil
}

func (s *service) visibleTrack(ctx context.Context, userID, trackID uuid.UUID) (*models.Track, error) {
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
	return track, nil
}
