package albums

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

// Service defines the album operations behind the library endpoints.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AlbumDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateAlbumRequest) (*AlbumDTO, error)
	Update(ctx context.Context, userID, albumID uuid.UUID, req UpdateAlbumRequest) (*AlbumDTO, error)
	Delete(ctx context.Context, userID, albumID uuid.UUID) error
	SetDefault(ctx context.Context, userID, albumID uuid.UUID) error
	PublicByShareToken(ctx context.Context, token string) (*PublicAlbumDTO, error)
}

// CreateAlbumRequest carries the fields accepted when creating an album.
type CreateAlbumRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=120"`
	CoverURL *string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// UpdateAlbumRequest carries the mutable album fields.
type UpdateAlbumRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=120"`
	CoverURL *string `json:"cover_url,omitempty" validate:"omitempty,url"`
}

// AlbumDTO is the owner-facing album shape.
type AlbumDTO struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	CoverURL   *string   `json:"cover_url,omitempty"`
	IsDefault  bool      `json:"is_default"`
	ShareToken string    `json:"share_token"`
	ViewCount  int64     `json:"view_count"`
}

// PublicAlbumDTO is the unauthenticated share-link shape; no share token echo.
type PublicAlbumDTO struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	CoverURL  *string        `json:"cover_url,omitempty"`
	ViewCount int64          `json:"view_count"`
	Tracks    []models.Track `json:"tracks"`
}

type albumRepository interface {
	Create(ctx context.Context, album *models.Album) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Album, error)
	FindByShareToken(ctx context.Context, token string) (*models.Album, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Album, error)
	Update(ctx context.Context, id uuid.UUID, name string, coverURL *string) error
	Delete(ctx context.Context, id uuid.UUID) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
}

type trackLister interface {
	ListPublicByAlbum(ctx context.Context, albumID uuid.UUID) ([]models.Track, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   albumRepository
	tracks trackLister
	db     txRunner
}

// NewService wires album dependencies.
func NewService(repo albumRepository, tracks trackLister, db txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "albums repository required")
	}
	if tracks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracks repository required")
	}
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	return &service{repo: repo, tracks: tracks, db: db}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AlbumDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list albums")
	}
	out := make([]AlbumDTO, 0, len(rows))
	for i := range rows {
		out = append(out, fromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateAlbumRequest) (*AlbumDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "album name required")
	}

	album := &models.Album{
		UserID:   userID,
		Name:     name,
		CoverURL: req.CoverURL,
	}
	if err := s.repo.Create(ctx, album); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create album")
	}
	dto := fromModel(album)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, albumID uuid.UUID, req UpdateAlbumRequest) (*AlbumDTO, error) {
	album, err := s.ownedAlbum(ctx, userID, albumID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "album name required")
	}
	if err := s.repo.Update(ctx, album.ID, name, req.CoverURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update album")
	}
	album.Name = name
	album.CoverURL = req.CoverURL
	dto := fromModel(album)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, albumID uuid.UUID) error {
	album, err := s.ownedAlbum(ctx, userID, albumID)
	if err != nil {
		return err
	}
	if album.IsDefault {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "default album cannot be deleted")
	}
	if err := s.repo.Delete(ctx, album.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete album")
	}
	return nil
}

// SetDefault promotes an album, demoting the previous default in the same transaction.
func (s *service) SetDefault(ctx context.Context, userID, albumID uuid.UUID) error {
	album, err := s.ownedAlbum(ctx, userID, albumID)
	if err != nil {
		return err
	}
	if album.IsDefault {
		return nil
	}
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Album{}).
			Where("user_id = ? AND is_default", userID).
			UpdateColumn("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Album{}).
			Where("id = ?", album.ID).
			UpdateColumn("is_default", true).Error
	})
}

func (s *service) PublicByShareToken(ctx context.Context, token string) (*PublicAlbumDTO, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "album not found")
	}
	album, err := s.repo.FindByShareToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "album not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
	}

	if err := s.repo.IncrementViewCount(ctx, album.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count album view")
	}
	album.ViewCount++

	tracks, err := s.tracks.ListPublicByAlbum(ctx, album.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list album tracks")
	}

	return &PublicAlbumDTO{
		ID:        album.ID,
		Name:      album.Name,
		CoverURL:  album.CoverURL,
		ViewCount: album.ViewCount,
		Tracks:    tracks,
	}, nil
}

func (s *service) ownedAlbum(ctx context.Context, userID, albumID uuid.UUID) (*models.Album, error) {
	if userID == uuid.Nil || albumID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "album id required")
	}
	album, err := s.repo.FindByID(ctx, albumID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "album not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load album")
	}
	if album.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "album belongs to another user")
	}
	return album, nil
}

func fromModel(a *models.Album) AlbumDTO {
	return AlbumDTO{
		ID:         a.ID,
		Name:       a.Name,
		CoverURL:   a.CoverURL,
		IsDefault:  a.IsDefault,
		ShareToken: a.ShareToken,
		ViewCount:  a.ViewCount,
	}
}
