package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

func newNotificationsDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  track_id TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(ddl).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	row := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeTrackReady,
		Title:     "Your track is ready",
		Message:   "\"Midnight Drive\" finished generating",
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(row).Error)
	return row
}

func TestListPaginatesNewestFirst(t *testing.T) {
	db := newNotificationsDB(t)
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		seedNotification(t, db, userID, base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, db, uuid.New(), base)

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	first, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2}, false)
	require.NoError(t, err)
	require.Len(t, first.Notifications, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, int64(3), first.UnreadCount)
	assert.True(t, first.Notifications[0].CreatedAt.After(first.Notifications[1].CreatedAt))

	second, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, false)
	require.NoError(t, err)
	require.Len(t, second.Notifications, 1)
	assert.Empty(t, second.NextCursor)
}

func TestListUnreadOnlyFiltersReadRows(t *testing.T) {
	db := newNotificationsDB(t)
	userID := uuid.New()
	read := seedNotification(t, db, userID, time.Now().UTC().Add(-2*time.Minute))
	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.Notification{}).Where("id = ?", read.ID).Update("read_at", now).Error)
	unread := seedNotification(t, db, userID, time.Now().UTC())

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	result, err := svc.List(context.Background(), userID, pagination.Params{}, true)
	require.NoError(t, err)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, unread.ID, result.Notifications[0].ID)
	assert.Equal(t, int64(1), result.UnreadCount)
}

func TestMarkReadStampsOwnRowOnly(t *testing.T) {
	db := newNotificationsDB(t)
	userID := uuid.New()
	row := seedNotification(t, db, userID, time.Now().UTC())

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), uuid.New(), row.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())

	require.NoError(t, svc.MarkRead(context.Background(), userID, row.ID))

	var refreshed models.Notification
	require.NoError(t, db.First(&refreshed, "id = ?", row.ID).Error)
	assert.NotNil(t, refreshed.ReadAt)

	// A second pass finds nothing unread.
	err = svc.MarkRead(context.Background(), userID, row.ID)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMarkAllReadCountsRows(t *testing.T) {
	db := newNotificationsDB(t)
	userID := uuid.New()
	seedNotification(t, db, userID, time.Now().UTC().Add(-time.Minute))
	seedNotification(t, db, userID, time.Now().UTC())

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	updated, err := svc.MarkAllRead(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	count, err := NewRepository(db).CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteOlderThanPrunesFeed(t *testing.T) {
	db := newNotificationsDB(t)
	userID := uuid.New()
	seedNotification(t, db, userID, time.Now().UTC().Add(-48*time.Hour))
	keep := seedNotification(t, db, userID, time.Now().UTC())

	repo := NewRepository(db)
	deleted, err := repo.DeleteOlderThan(context.Background(), time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}
