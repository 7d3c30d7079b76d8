package tracks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/albums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

func setupTracksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	albumsTable := `
CREATE TABLE IF NOT EXISTS albums (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  cover_url TEXT,
  is_default INTEGER NOT NULL DEFAULT 0,
  share_token TEXT NOT NULL UNIQUE,
  view_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
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
	require.NoError(t, db.Exec(albumsTable).Error)
	require.NoError(t, db.Exec(tracksTable).Error)
	return db
}

type memoryCache struct {
	values map[string]string
	sets   int
	dels   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	return c.values[key], nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.values[key] = value.(string)
	c.sets++
	return nil
}

func (c *memoryCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	c.dels++
	return nil
}

func (c *memoryCache) TrackListKey(userID string) string {
	return "cache:tracks:" + userID
}

func newTrackService(t *testing.T, db *gorm.DB, cache cacheStore) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(db),
		Albums: albums.NewRepository(db),
		Cache:  cache,
		Logger: logger.New(logger.Options{ServiceName: "tracks-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

type seedTrackOpts struct {
	userID     uuid.UUID
	title      string
	status     enums.GenerationStatus
	visibility enums.TrackVisibility
	gallery    bool
	albumID    *uuid.UUID
	createdAt  time.Time
}

func seedTrack(t *testing.T, db *gorm.DB, opts seedTrackOpts) *models.Track {
	t.Helper()
	if opts.status == "" {
		opts.status = enums.GenerationStatusCompleted
	}
	if opts.visibility == "" {
		opts.visibility = enums.TrackVisibilityPrivate
	}
	if opts.createdAt.IsZero() {
		opts.createdAt = time.Now().UTC()
	}
	track := &models.Track{
		ID:             uuid.New(),
		UserID:         opts.userID,
		AlbumID:        opts.albumID,
		Type:           enums.GenerationTypeTextToMusic,
		Status:         opts.status,
		Title:          opts.title,
		Visibility:     opts.visibility,
		GalleryVisible: opts.gallery,
		CreatedAt:      opts.createdAt,
		UpdatedAt:      opts.createdAt,
	}
	require.NoError(t, db.Create(track).Error)
	return track
}

func TestServiceListPaginates(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)
	userID := uuid.New()

	now := time.Now().UTC()
	seedTrack(t, db, seedTrackOpts{userID: userID, title: "Oldest", createdAt: now.Add(-2 * time.Hour)})
	seedTrack(t, db, seedTrackOpts{userID: userID, title: "Middle", createdAt: now.Add(-time.Hour)})
	seedTrack(t, db, seedTrackOpts{userID: userID, title: "Newest", createdAt: now})
	seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Other User", createdAt: now})

	first, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Tracks, 2)
	assert.Equal(t, "Newest", first.Tracks[0].Title)
	assert.Equal(t, "Middle", first.Tracks[1].Title)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: first.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, second.Tracks, 1)
	assert.Equal(t, "Oldest", second.Tracks[0].Title)
	assert.Empty(t, second.NextCursor)
}

func TestServiceListCachesFirstPage(t *testing.T) {
	db := setupTracksTestDB(t)
	cache := newMemoryCache()
	svc := newTrackService(t, db, cache)
	userID := uuid.New()

	seedTrack(t, db, seedTrackOpts{userID: userID, title: "Cached"})

	first, err := svc.List(context.Background(), userID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, first.Tracks, 1)
	assert.Equal(t, 1, cache.sets)

	// A direct insert bypasses invalidation, so the cached page is served.
	seedTrack(t, db, seedTrackOpts{userID: userID, title: "Uncached"})
	again, err := svc.List(context.Background(), userID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, again.Tracks, 1)

	svc.InvalidateListCache(context.Background(), userID)
	fresh, err := svc.List(context.Background(), userID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, fresh.Tracks, 2)
}

func TestServiceUpdateInvalidatesCache(t *testing.T) {
	db := setupTracksTestDB(t)
	cache := newMemoryCache()
	svc := newTrackService(t, db, cache)
	userID := uuid.New()

	track := seedTrack(t, db, seedTrackOpts{userID: userID, title: "Before"})
	_, err := svc.List(context.Background(), userID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)

	newTitle := "After"
	out, err := svc.Update(context.Background(), userID, track.ID, UpdateTrackRequest{Title: &newTitle})
	require.NoError(t, err)
	assert.Equal(t, "After", out.Title)
	assert.GreaterOrEqual(t, cache.dels, 1)

	fresh, err := svc.List(context.Background(), userID, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, fresh.Tracks, 1)
	assert.Equal(t, "After", fresh.Tracks[0].Title)
}

func TestServiceUpdateGalleryRequiresPublic(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)
	userID := uuid.New()

	track := seedTrack(t, db, seedTrackOpts{userID: userID, title: "Hidden"})

	visible := true
	_, err := svc.Update(context.Background(), userID, track.ID, UpdateTrackRequest{GalleryVisible: &visible})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestServiceUpdatePrivateLeavesGallery(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)
	userID := uuid.New()

	track := seedTrack(t, db, seedTrackOpts{
		userID:     userID,
		title:      "Featured",
		visibility: enums.TrackVisibilityPublic,
		gallery:    true,
	})

	private := string(enums.TrackVisibilityPrivate)
	out, err := svc.Update(context.Background(), userID, track.ID, UpdateTrackRequest{Visibility: &private})
	require.NoError(t, err)
	assert.Equal(t, enums.TrackVisibilityPrivate, out.Visibility)
	assert.False(t, out.GalleryVisible)
}

func TestServiceUpdateRejectsForeignAlbum(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)
	userID := uuid.New()

	foreign := &models.Album{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Name:       "Not Yours",
		ShareToken: albums.NewShareToken(),
	}
	require.NoError(t, db.Create(foreign).Error)
	track := seedTrack(t, db, seedTrackOpts{userID: userID, title: "Homeless"})

	_, err := svc.Update(context.Background(), userID, track.ID, UpdateTrackRequest{AlbumID: &foreign.ID})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestServiceDeleteRejectsNonOwner(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)

	track := seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Protected"})

	err := svc.Delete(context.Background(), uuid.New(), track.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestServiceGalleryOnlyShowsOptedInPublicTracks(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)

	seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "In Gallery", visibility: enums.TrackVisibilityPublic, gallery: true})
	seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Public Only", visibility: enums.TrackVisibilityPublic})
	seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Private", gallery: true})
	seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Still Generating", visibility: enums.TrackVisibilityPublic, gallery: true, status: enums.GenerationStatusGenerating})

	out, err := svc.Gallery(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, out.Tracks, 1)
	assert.Equal(t, "In Gallery", out.Tracks[0].Title)
}

func TestServicePublicGetHidesPrivateTracks(t *testing.T) {
	db := setupTracksTestDB(t)
	svc := newTrackService(t, db, nil)

	private := seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Secret"})

	_, err := svc.PublicGet(context.Background(), private.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	public := seedTrack(t, db, seedTrackOpts{userID: uuid.New(), title: "Open", visibility: enums.TrackVisibilityPublic})
	out, err := svc.PublicGet(context.Background(), public.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open", out.Title)
}
