package comments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

// CommentWithAuthor joins a comment with its author's display name.
type CommentWithAuthor struct {
	models.Comment
	AuthorName string
}

// Page is one cursor page of comments.
type Page struct {
	Comments   []CommentWithAuthor
	NextCursor string
}

// Repository exposes comment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a comments repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a comment.
func (r *Repository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// FindByID loads a comment by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByTrack returns a cursor page of a track's comments, newest first.
func (r *Repository) ListByTrack(ctx context.Context, trackID uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Select("comments.*, users.display_name AS author_name").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.track_id = ?", trackID)
	if cursor != nil {
		q = q.Where("(comments.created_at < ?) OR (comments.created_at = ? AND comments.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	normalized := pagination.NormalizeLimit(params.Limit)
	var rows []CommentWithAuthor
	if err := q.Order("comments.created_at DESC, comments.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	page := &Page{}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	page.Comments = rows
	return page, nil
}

// Delete removes a comment.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id).Error
}

// DeleteByTrack removes all of a track's comments. Used by moderation when a
// track is force-deleted.
func (r *Repository) DeleteByTrack(ctx context.Context, trackID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, "track_id = ?", trackID).Error
}
