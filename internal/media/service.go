package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListByUser(ctx context.Context, userID uuid.UUID, kind *enums.MediaKind) ([]models.Media, error)
	MarkUploaded(ctx context.Context, id uuid.UUID, url *string) error
	MarkDeleted(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type objectStore interface {
	DefaultBucket() string
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// Service exposes the two-step upload flow plus media housekeeping.
type Service struct {
	repo   mediaRepository
	store  objectStore
	gcsCfg config.GCSConfig
	maxMB  int
	logg   *logger.Logger
}

// ServiceParams collects the media service dependencies.
type ServiceParams struct {
	Repo   mediaRepository
	Store  objectStore
	GCS    config.GCSConfig
	Media  config.MediaConfig
	Logger *logger.Logger
}

// NewService wires the media service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "media repository required")
	}
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "object store required")
	}
	maxMB := params.Media.MaxUploadMB
	if maxMB <= 0 {
		maxMB = 50
	}
	return &Service{
		repo:   params.Repo,
		store:  params.Store,
		gcsCfg: params.GCS,
		maxMB:  maxMB,
		logg:   params.Logger,
	}, nil
}

// PresignRequest models the payload required to request an upload URL.
type PresignRequest struct {
	Kind      string `json:"kind" validate:"required"`
	FileName  string `json:"file_name" validate:"required"`
	MimeType  string `json:"mime_type" validate:"required"`
	SizeBytes int64  `json:"size_bytes" validate:"required,gt=0"`
}

// PresignDTO contains everything the client needs to PUT the object.
type PresignDTO struct {
	MediaID      uuid.UUID `json:"media_id"`
	GCSKey       string    `json:"gcs_key"`
	SignedPutURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MediaDTO is the client-facing view of an upload.
type MediaDTO struct {
	ID          uuid.UUID `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	FileName    string    `json:"file_name"`
	MimeType    string    `json:"mime_type"`
	SizeBytes   int64     `json:"size_bytes"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var mimeTypesByKind = map[enums.MediaKind][]string{
	enums.MediaKindAudioSource: {"audio/mpeg", "audio/mp4", "audio/wav", "audio/x-wav", "audio/ogg", "audio/flac"},
	enums.MediaKindAlbumCover:  {"image/png", "image/jpeg", "image/webp"},
	enums.MediaKindPortrait:    {"image/png", "image/jpeg", "image/webp"},
	enums.MediaKindBandPhoto:   {"image/png", "image/jpeg", "image/webp"},
	enums.MediaKindAvatar:      {"image/png", "image/jpeg", "image/webp"},
	// MediaKindOther is intentionally absent to allow any mime type.
}

// PresignUpload records a pending upload and returns a signed PUT URL for it.
func (s *Service) PresignUpload(ctx context.Context, userID uuid.UUID, req PresignRequest) (*PresignDTO, error) {
	kind, err := enums.ParseMediaKind(req.Kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media kind")
	}

	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	maxBytes := int64(s.maxMB) * 1024 * 1024
	if req.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if req.SizeBytes > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("upload exceeds the %dMB limit", s.maxMB))
	}

	mimeType := strings.TrimSpace(req.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedMime(kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for media kind")
	}

	mediaID := uuid.New()
	gcsKey := buildGCSKey(userID, kind, mediaID, fileName)

	row := &models.Media{
		ID:        mediaID,
		UserID:    userID,
		Kind:      kind,
		Status:    enums.MediaStatusPending,
		GCSKey:    gcsKey,
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: req.SizeBytes,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist media row")
	}

	expiresAt := time.Now().Add(s.gcsCfg.UploadURLExpiry)
	signedURL, err := s.store.SignedURL(s.store.DefaultBucket(), gcsKey, mimeType, s.gcsCfg.UploadURLExpiry)
	if err != nil {
		_ = s.repo.Delete(ctx, mediaID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignDTO{
		MediaID:      mediaID,
		GCSKey:       gcsKey,
		SignedPutURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    expiresAt,
	}, nil
}

// FinalizeUpload marks a pending upload as stored once the client finishes the PUT.
func (s *Service) FinalizeUpload(ctx context.Context, userID, mediaID uuid.UUID) (*MediaDTO, error) {
	row, err := s.ownedMedia(ctx, userID, mediaID)
	if err != nil {
		return nil, err
	}
	if row.Status != enums.MediaStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "upload already finalized")
	}
	if err := s.repo.MarkUploaded(ctx, row.ID, nil); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark media uploaded")
	}
	row.Status = enums.MediaStatusUploaded
	return s.dto(ctx, row), nil
}

// List returns the user's uploads, optionally filtered by kind.
func (s *Service) List(ctx context.Context, userID uuid.UUID, rawKind string) ([]MediaDTO, error) {
	var kind *enums.MediaKind
	if rawKind != "" {
		parsed, err := enums.ParseMediaKind(rawKind)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid media kind")
		}
		kind = &parsed
	}
	rows, err := s.repo.ListByUser(ctx, userID, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list media")
	}
	dtos := make([]MediaDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *s.dto(ctx, &rows[i]))
	}
	return dtos, nil
}

// Delete soft-deletes the row and removes the stored object.
func (s *Service) Delete(ctx context.Context, userID, mediaID uuid.UUID) error {
	row, err := s.ownedMedia(ctx, userID, mediaID)
	if err != nil {
		return err
	}
	if err := s.repo.MarkDeleted(ctx, row.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark media deleted")
	}
	if err := s.store.DeleteObject(ctx, s.store.DefaultBucket(), row.GCSKey); err != nil && s.logg != nil {
		s.logg.Warn(ctx, fmt.Sprintf("delete object %s: %v", row.GCSKey, err))
	}
	return nil
}

func (s *Service) ownedMedia(ctx context.Context, userID, mediaID uuid.UUID) (*models.Media, error) {
	row, err := s.repo.FindByID(ctx, mediaID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "media not found")
	}
	if row.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "media belongs to another user")
	}
	if row.Status == enums.MediaStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
	}
	return row, nil
}

func (s *Service) dto(ctx context.Context, row *models.Media) *MediaDTO {
	dto := &MediaDTO{
		ID:        row.ID,
		Kind:      row.Kind.String(),
		Status:    row.Status.String(),
		FileName:  row.FileName,
		MimeType:  row.MimeType,
		SizeBytes: row.SizeBytes,
		CreatedAt: row.CreatedAt,
	}
	if row.Status == enums.MediaStatusUploaded {
		url, err := s.store.SignedReadURL(s.store.DefaultBucket(), row.GCSKey, s.gcsCfg.DownloadURLExpiry)
		if err != nil {
			if s.logg != nil {
				s.logg.Warn(ctx, fmt.Sprintf("sign read url for %s: %v", row.GCSKey, err))
			}
		} else {
			dto.DownloadURL = url
		}
	}
	return dto
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	if allowed, ok := mimeTypesByKind[kind]; ok && len(allowed) > 0 {
		for _, candidate := range allowed {
			if strings.EqualFold(candidate, mimeType) {
				return true
			}
		}
		return false
	}
	return true
}

func buildGCSKey(userID uuid.UUID, kind enums.MediaKind, id uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = id.String()
	}
	return fmt.Sprintf("media/%s/%s/%s/%s", userID.String(), kind, id.String(), cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
