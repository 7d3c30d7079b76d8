package tracks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
)

// Cached first pages expire quickly; mutations drop them eagerly anyway.
const listCacheTTL = 5 * time.Minute

// Service defines the track library operations.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*ListResult, error)
	Get(ctx context.Context, userID, trackID uuid.UUID) (*TrackDTO, error)
	Update(ctx context.Context, userID, trackID uuid.UUID, req UpdateTrackRequest) (*TrackDTO, error)
	Delete(ctx context.Context, userID, trackID uuid.UUID) error
	Gallery(ctx context.Context, params pagination.Params) (*GalleryResult, error)
	PublicGet(ctx context.Context, trackID uuid.UUID) (*PublicTrackDTO, error)
	InvalidateListCache(ctx context.Context, userID uuid.UUID)
}

// ListResult is one page of the owner's library.
type ListResult struct {
	Tracks     []TrackDTO `json:"tracks"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// GalleryResult is one page of the community feed.
type GalleryResult struct {
	Tracks     []PublicTrackDTO `json:"tracks"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// UpdateTrackRequest carries the mutable track fields.
type UpdateTrackRequest struct {
	Title          *string    `json:"title,omitempty" validate:"omitempty,min=1,max=160"`
	Visibility     *string    `json:"visibility,omitempty"`
	AlbumID        *uuid.UUID `json:"album_id,omitempty"`
	GalleryVisible *bool      `json:"gallery_visible,omitempty"`
}

type trackRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*Page, error)
	ListGallery(ctx context.Context, params pagination.Params) (*Page, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type albumFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error)
}

type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	TrackListKey(userID string) string
}

// ServiceParams bundles the track service dependencies.
type ServiceParams struct {
	Repo   trackRepository
	Albums albumFinder
	Cache  cacheStore
	Logger *logger.Logger
}

type service struct {
	repo   trackRepository
	albums albumFinder
	cache  cacheStore
	logg   *logger.Logger
}

// NewService wires track dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracks repository required")
	}
	if params.Albums == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "albums repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:   params.Repo,
		albums: params.Albums,
		cache:  params.Cache,
		logg:   params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	// Only the unfiltered first page is cached; it is what the library
	// screen requests on every visit.
	cacheable := s.cache != nil && params.Cursor == "" && filters.AlbumID == nil && filters.Status == nil
	if cacheable {
		if cached := s.readListCache(ctx, userID, params.Limit); cached != nil {
			return cached, nil
		}
	}

	page, err := s.repo.ListByUser(ctx, userID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tracks")
	}
	result := toListResult(page)

	if cacheable {
		s.writeListCache(ctx, userID, params.Limit, result)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, userID, trackID uuid.UUID) (*TrackDTO, error) {
	track, err := s.ownedTrack(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}
	dto := FromModel(track)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, trackID uuid.UUID, req UpdateTrackRequest) (*TrackDTO, error) {
	track, err := s.ownedTrack(ctx, userID, trackID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "track title required")
		}
		updates["title"] = title
		track.Title = title
	}
	if req.Visibility != nil {
		visibility, err := enums.ParseTrackVisibility(*req.Visibility)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid visibility")
		}
		updates["visibility"] = visibility
		track.Visibility = visibility
		if visibility == enums.TrackVisibilityPrivate {
			// Private tracks never surface in the gallery.
			updates["gallery_visible"] = false
			track.GalleryVisible = false
		}
	}
	if req.GalleryVisible != nil {
		if *req.GalleryVisible && track.Visibility != enums.TrackVisibilityPublic {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "only public tracks can join the gallery")
		}
		updates["gallery_visible"] = *req.GalleryVisible
		track.GalleryVisible = *req.GalleryVisible
	}
	if req.AlbumID != nil {
		album, err := s.albums.FindByID(ctx, *req.AlbumID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "album not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
		}
		if album.UserID != userID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "album belongs to another user")
		}
		updates["album_id"] = album.ID
		track.AlbumID = &album.ID
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, track.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update track")
		}
		s.InvalidateListCache(ctx, userID)
	}

	dto := FromModel(track)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, trackID uuid.UUID) error {
	track, err := s.ownedTrack(ctx, userID, trackID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, track.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete track")
	}
	s.InvalidateListCache(ctx, userID)
	return nil
}

func (s *service) Gallery(ctx context.Context, params pagination.Params) (*GalleryResult, error) {
	page, err := s.repo.ListGallery(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list gallery")
	}
	out := &GalleryResult{
		Tracks:     make([]PublicTrackDTO, 0, len(page.Tracks)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Tracks {
		out.Tracks = append(out.Tracks, PublicFromModel(&page.Tracks[i]))
	}
	return out, nil
}

func (s *service) PublicGet(ctx context.Context, trackID uuid.UUID) (*PublicTrackDTO, error) {
	if trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
	}
	track, err := s.repo.FindByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	if track.Visibility != enums.TrackVisibilityPublic {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
	}
	dto := PublicFromModel(track)
	return &dto, nil
}

// InvalidateListCache drops the user's cached library page. Cache failures
// never surface to callers; the database remains the source of truth.
func (s *service) InvalidateListCache(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil || userID == uuid.Nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.TrackListKey(userID.String())); err != nil {
		s.logg.Warn(ctx, "failed to invalidate track list cache")
	}
}

func (s *service) ownedTrack(ctx context.Context, userID, trackID uuid.UUID) (*models.Track, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	track, err := s.repo.FindByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	if track.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "track belongs to another user")
	}
	return track, nil
}

type cachedList struct {
	Limit  int         `json:"limit"`
	Result *ListResult `json:"result"`
}

func (s *service) readListCache(ctx context.Context, userID uuid.UUID, limit int) *ListResult {
	raw, err := s.cache.Get(ctx, s.cache.TrackListKey(userID.String()))
	if err != nil || raw == "" {
		return nil
	}
	var entry cachedList
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil
	}
	if entry.Limit != pagination.NormalizeLimit(limit) {
		return nil
	}
	return entry.Result
}

func (s *service) writeListCache(ctx context.Context, userID uuid.UUID, limit int, result *ListResult) {
	payload, err := json.Marshal(cachedList{Limit: pagination.NormalizeLimit(limit), Result: result})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.TrackListKey(userID.String()), string(payload), listCacheTTL); err != nil {
		s.logg.Warn(ctx, "failed to cache track list")
	}
}

func toListResult(page *Page) *ListResult {
	out := &ListResult{
		Tracks:     make([]TrackDTO, 0, len(page.Tracks)),
		NextCursor: page.NextCursor,
	}
	for i := range page.Tracks {
		out.Tracks = append(out.Tracks, FromModel(&page.Tracks[i]))
	}
	return out
}
