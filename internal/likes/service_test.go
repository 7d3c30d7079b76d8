package likes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

func setupLikesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	tracksTable := `
CREATE TABLE IF NOT EXISTS tracks (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  album_id TEXT,
  type TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  title TEXT NOT NULL,
  tags TEXT,
  prompt TEXT,
  lyrics TEXT,
  duration_seconds INTEGER NOT NULL DEFAULT 0,
  provider_job_id TEXT,
  source_media_id TEXT,
  audio_url TEXT,
  video_url TEXT,
  image_url TEXT,
  error_message TEXT,
  visibility TEXT NOT NULL DEFAULT 'private',
  gallery_visible INTEGER NOT NULL DEFAULT 0,
  like_count INTEGER NOT NULL DEFAULT 0,
  comment_count INTEGER NOT NULL DEFAULT 0,
  completed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	likesTable := `
CREATE TABLE IF NOT EXISTS track_likes (
  id TEXT PRIMARY KEY,
  track_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (track_id, user_id)
);`
	require.NoError(t, db.Exec(tracksTable).Error)
	require.NoError(t, db.Exec(likesTable).Error)
	return db
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func seedPublicTrack(t *testing.T, db *gorm.DB) *models.Track {
	t.Helper()
	track := &models.Track{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       enums.GenerationTypeTextToMusic,
		Status:     enums.GenerationStatusCompleted,
		Title:      "Likeable",
		Visibility: enums.TrackVisibilityPublic,
	}
	require.NoError(t, db.Create(track).Error)
	return track
}

func newLikeService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(tracks.NewRepository(db), sqliteTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

// registerLikeIDHook pre-generates like IDs; the sqlite test schema has no
// uuid default.
func registerLikeIDHook(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Callback().Create().Before("gorm:create").Register("test_assign_like_id", func(tx *gorm.DB) {
		if like, ok := tx.Statement.Dest.(*models.TrackLike); ok && like.ID == uuid.Nil {
			like.ID = uuid.New()
		}
	})
	require.NoError(t, err)
}

func TestToggleLikesAndUnlikes(t *testing.T) {
	db := setupLikesTestDB(t)
	svc := newLikeService(t, db)
	track := seedPublicTrack(t, db)
	userID := uuid.New()
	registerLikeIDHook(t, db)

	first, err := svc.Toggle(context.Background(), userID, track.ID)
	require.NoError(t, err)
	assert.True(t, first.Liked)
	assert.Equal(t, int64(1), first.LikeCount)

	reloaded, err := tracks.NewRepository(db).FindByID(context.Background(), track.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.LikeCount)

	second, err := svc.Toggle(context.Background(), userID, track.ID)
	require.NoError(t, err)
	assert.False(t, second.Liked)
	assert.Equal(t, int64(0), second.LikeCount)

	reloaded, err = tracks.NewRepository(db).FindByID(context.Background(), track.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.LikeCount)
}

func TestToggleDistinctUsersAccumulate(t *testing.T) {
	db := setupLikesTestDB(t)
	svc := newLikeService(t, db)
	track := seedPublicTrack(t, db)
	registerLikeIDHook(t, db)

	_, err := svc.Toggle(context.Background(), uuid.New(), track.ID)
	require.NoError(t, err)
	_, err = svc.Toggle(context.Background(), uuid.New(), track.ID)
	require.NoError(t, err)

	reloaded, err := tracks.NewRepository(db).FindByID(context.Background(), track.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.LikeCount)
}

func TestToggleHiddenTrack(t *testing.T) {
	db := setupLikesTestDB(t)
	svc := newLikeService(t, db)

	private := &models.Track{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Type:       enums.GenerationTypeTextToMusic,
		Title:      "Private",
		Visibility: enums.TrackVisibilityPrivate,
	}
	require.NoError(t, db.Create(private).Error)

	_, err := svc.Toggle(context.Background(), uuid.New(), private.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
