package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

type notificationRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*Page, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Service exposes the user-facing notification feed.
type Service struct {
	repo notificationRepository
}

// NewService wires the notifications service.
func NewService(repo notificationRepository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications repository required")
	}
	return &Service{repo: repo}, nil
}

// NotificationDTO is the client-facing view of a notification.
type NotificationDTO struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	TrackID   *uuid.UUID `json:"track_id,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ListResult is one page of the feed plus the unread badge count.
type ListResult struct {
	Notifications []NotificationDTO `json:"notifications"`
	NextCursor    string            `json:"next_cursor,omitempty"`
	UnreadCount   int64             `json:"unread_count"`
}

// List returns a page of the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, unreadOnly bool) (*ListResult, error) {
	page, err := s.repo.ListByUser(ctx, userID, params, ListFilters{UnreadOnly: unreadOnly})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}

	dtos := make([]NotificationDTO, 0, len(page.Notifications))
	for i := range page.Notifications {
		dtos = append(dtos, fromModel(&page.Notifications[i]))
	}
	return &ListResult{
		Notifications: dtos,
		NextCursor:    page.NextCursor,
		UnreadCount:   unread,
	}, nil
}

// MarkRead stamps one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	updated, err := s.repo.MarkRead(ctx, userID, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead stamps the user's whole feed, returning how many rows changed.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return updated, nil
}

func fromModel(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      n.Type.String(),
		Title:     n.Title,
		Message:   n.Message,
		TrackID:   n.TrackID,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
