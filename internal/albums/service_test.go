package albums

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

func setupAlbumsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	albums := `
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
	require.NoError(t, db.Exec(albums).Error)
	return db
}

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubTrackLister struct {
	tracks []models.Track
	err    error
}

func (s stubTrackLister) ListPublicByAlbum(ctx context.Context, albumID uuid.UUID) ([]models.Track, error) {
	return s.tracks, s.err
}

func newAlbumService(t *testing.T, db *gorm.DB, tracks trackLister) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), tracks, sqliteTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func seedAlbum(t *testing.T, db *gorm.DB, userID uuid.UUID, name string, isDefault bool) *models.Album {
	t.Helper()
	album := &models.Album{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		IsDefault:  isDefault,
		ShareToken: NewShareToken(),
	}
	require.NoError(t, db.Create(album).Error)
	return album
}

func TestServiceListOrdersDefaultFirst(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})
	userID := uuid.New()

	seedAlbum(t, db, userID, "Demos", false)
	seedAlbum(t, db, userID, "My Tracks", true)
	seedAlbum(t, db, uuid.New(), "Someone Else", true)

	out, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].IsDefault)
	assert.Equal(t, "My Tracks", out[0].Name)
}

func TestServiceCreateMintsShareToken(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})

	out, err := svc.Create(context.Background(), uuid.New(), CreateAlbumRequest{Name: "  Road Trip  "})
	require.NoError(t, err)
	assert.Equal(t, "Road Trip", out.Name)
	assert.NotEmpty(t, out.ShareToken)
	assert.False(t, out.IsDefault)
}

func TestServiceUpdateRejectsOtherUsersAlbum(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})

	album := seedAlbum(t, db, uuid.New(), "Private", false)

	_, err := svc.Update(context.Background(), uuid.New(), album.ID, UpdateAlbumRequest{Name: "Hijacked"})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeForbidden, appErr.Code())
}

func TestServiceDeleteProtectsDefaultAlbum(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})
	userID := uuid.New()

	def := seedAlbum(t, db, userID, "My Tracks", true)
	extra := seedAlbum(t, db, userID, "Demos", false)

	err := svc.Delete(context.Background(), userID, def.ID)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())

	require.NoError(t, svc.Delete(context.Background(), userID, extra.ID))
	_, err = NewRepository(db).FindByID(context.Background(), extra.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestServiceSetDefaultDemotesPreviousDefault(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})
	userID := uuid.New()

	old := seedAlbum(t, db, userID, "My Tracks", true)
	next := seedAlbum(t, db, userID, "Demos", false)

	require.NoError(t, svc.SetDefault(context.Background(), userID, next.ID))

	repo := NewRepository(db)
	reloadedOld, err := repo.FindByID(context.Background(), old.ID)
	require.NoError(t, err)
	assert.False(t, reloadedOld.IsDefault)

	reloadedNext, err := repo.FindByID(context.Background(), next.ID)
	require.NoError(t, err)
	assert.True(t, reloadedNext.IsDefault)
}

func TestServicePublicByShareTokenCountsViews(t *testing.T) {
	db := setupAlbumsTestDB(t)
	trackID := uuid.New()
	svc := newAlbumService(t, db, stubTrackLister{tracks: []models.Track{{ID: trackID, Title: "Night Drive"}}})

	album := seedAlbum(t, db, uuid.New(), "Shared", false)

	out, err := svc.PublicByShareToken(context.Background(), album.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ViewCount)
	require.Len(t, out.Tracks, 1)
	assert.Equal(t, trackID, out.Tracks[0].ID)

	again, err := svc.PublicByShareToken(context.Background(), album.ShareToken)
	require.NoError(t, err)
	assert.Equal(t, int64(2), again.ViewCount)
}

func TestServicePublicByShareTokenUnknownToken(t *testing.T) {
	db := setupAlbumsTestDB(t)
	svc := newAlbumService(t, db, stubTrackLister{})

	_, err := svc.PublicByShareToken(context.Background(), "nope")
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}
