package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/generation/provider"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

// Accounts without a paid plan still get a small monthly allowance.
const (
	freeAudioQuota = 3
	freeVideoQuota = 0
)

// Service drives the music generation lifecycle.
type Service interface {
	StartMusic(ctx context.Context, userID uuid.UUID, req StartMusicRequest) (*tracks.TrackDTO, error)
	Status(ctx context.Context, userID, trackID uuid.UUID) (*StatusDTO, error)
}

// StartMusicRequest submits a new generation.
type StartMusicRequest struct {
	Title           string     `json:"title" validate:"required,min=1,max=160"`
	Prompt          string     `json:"prompt,omitempty" validate:"omitempty,max=2000"`
	Lyrics          string     `json:"lyrics,omitempty" validate:"omitempty,max=5000"`
	Tags            []string   `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=40"`
	DurationSeconds int        `json:"duration_seconds,omitempty" validate:"omitempty,min=10,max=300"`
	SourceMediaID   *uuid.UUID `json:"source_media_id,omitempty"`
}

// StatusDTO is the poll-friendly view of a generation.
type StatusDTO struct {
	TrackID      uuid.UUID              `json:"track_id"`
	Status       enums.GenerationStatus `json:"status"`
	AudioURL     *string                `json:"audio_url,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
}

// QuotaDetails explains a quota rejection so clients can render an upgrade prompt.
type QuotaDetails struct {
	Used  int `json:"used"`
	Quota int `json:"quota"`
}

type trackWriter interface {
	Create(ctx context.Context, track *models.Track) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
	MarkGenerating(ctx context.Context, id uuid.UUID, providerJobID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	IncrementAudioUsage(ctx context.Context, id uuid.UUID) error
}

type planFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
}

type defaultAlbumFinder interface {
	FindDefaultForUser(ctx context.Context, userID uuid.UUID) (*models.Album, error)
}

type mediaFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
}

type jobSubmitter interface {
	StartMusic(ctx context.Context, req provider.StartMusicRequest) (*provider.StartResponse, error)
}

type readURLSigner interface {
	DefaultBucket() string
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
}

type cacheInvalidator interface {
	InvalidateListCache(ctx context.Context, userID uuid.UUID)
}

// ServiceParams bundles the generation service dependencies.
type ServiceParams struct {
	Tracks   trackWriter
	Users    userReader
	Plans    planFinder
	Albums   defaultAlbumFinder
	Media    mediaFinder
	Provider jobSubmitter
	Signer   readURLSigner
	Cache    cacheInvalidator
	GCS      config.GCSConfig
	Logger   *logger.Logger
}

type service struct {
	tracks   trackWriter
	users    userReader
	plans    planFinder
	albums   defaultAlbumFinder
	media    mediaFinder
	provider jobSubmitter
	signer   readURLSigner
	cache    cacheInvalidator
	gcs      config.GCSConfig
	logg     *logger.Logger
}

// NewService wires generation dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tracks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tracks repository required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans repository required")
	}
	if params.Albums == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "albums repository required")
	}
	if params.Media == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "media repository required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "synthesis provider client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		tracks:   params.Tracks,
		users:    params.Users,
		plans:    params.Plans,
		albums:   params.Albums,
		media:    params.Media,
		provider: params.Provider,
		signer:   params.Signer,
		cache:    params.Cache,
		gcs:      params.GCS,
		logg:     params.Logger,
	}, nil
}

func (s *service) StartMusic(ctx context.Context, userID uuid.UUID, req StartMusicRequest) (*tracks.TrackDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track title required")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" && req.SourceMediaID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt or source audio required")
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAudioQuota(ctx, user); err != nil {
		return nil, err
	}

	generationType := enums.GenerationTypeTextToMusic
	sourceURL := ""
	if req.SourceMediaID != nil {
		generationType = enums.GenerationTypeAudioToMusic
		sourceURL, err = s.resolveSourceAudio(ctx, userID, *req.SourceMediaID)
		if err != nil {
			return nil, err
		}
	}

	album, err := s.albums.FindDefaultForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default album")
	}

	ctx = s.logg.WithUserID(ctx, userID.String())
	track := &models.Track{
		UserID:          userID,
		AlbumID:         &album.ID,
		Type:            generationType,
		Status:          enums.GenerationStatusPending,
		Title:           title,
		Tags:            req.Tags,
		DurationSeconds: req.DurationSeconds,
		SourceMediaID:   req.SourceMediaID,
	}
	if prompt != "" {
		track.Prompt = &prompt
	}
	if lyrics := strings.TrimSpace(req.Lyrics); lyrics != "" {
		track.Lyrics = &lyrics
	}
	if err := s.tracks.Create(ctx, track); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create track")
	}
	ctx = s.logg.WithTrackID(ctx, track.ID.String())

	started, err := s.provider.StartMusic(ctx, provider.StartMusicRequest{
		Prompt:          prompt,
		Lyrics:          strings.TrimSpace(req.Lyrics),
		Tags:            req.Tags,
		DurationSeconds: req.DurationSeconds,
		SourceAudioURL:  sourceURL,
	})
	if err != nil {
		reason := "failed to submit generation"
		if markErr := s.tracks.MarkFailed(ctx, track.ID, reason); markErr != nil {
			s.logg.Error(ctx, "failed to record submission failure", markErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, reason)
	}

	if err := s.tracks.MarkGenerating(ctx, track.ID, started.JobID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record provider job")
	}
	track.Status = enums.GenerationStatusGenerating
	track.ProviderJobID = &started.JobID

	if err := s.users.IncrementAudioUsage(ctx, userID); err != nil {
		s.logg.Error(ctx, "failed to increment audio usage", err)
	}
	if s.cache != nil {
		s.cache.InvalidateListCache(ctx, userID)
	}

	s.logg.Info(ctx, "music generation submitted")
	dto := tracks.FromModel(track)
	return &dto, nil
}

func (s *service) Status(ctx context.Context, userID, trackID uuid.UUID) (*StatusDTO, error) {
	if userID == uuid.Nil || trackID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	track, err := s.tracks.FindByID(ctx, trackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	if track.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "track belongs to another user")
	}
	return &StatusDTO{
		TrackID:      track.ID,
		Status:       track.Status,
		AudioURL:     track.AudioURL,
		ErrorMessage: track.ErrorMessage,
	}, nil
}

func (s *service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) checkAudioQuota(ctx context.Context, user *models.User) error {
	quota := freeAudioQuota
	if user.PlanID != nil && user.PlanStatus == enums.PlanStatusActive {
		plan, err := s.plans.FindByID(ctx, *user.PlanID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
			}
		} else {
			quota = plan.AudioQuota
		}
	}
	if user.AudioGenerationsUsed >= quota {
		return pkgerrors.New(pkgerrors.CodeQuotaExceeded, "generation quota exceeded").
			WithDetails(QuotaDetails{Used: user.AudioGenerationsUsed, Quota: quota})
	}
	return nil
}

func (s *service) resolveSourceAudio(ctx context.Context, userID, mediaID uuid.UUID) (string, error) {
	media, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "source audio not found")
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source audio")
	}
	if media.UserID != userID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "source audio belongs to another user")
	}
	if media.Kind != enums.MediaKindAudioSource || media.Status != enums.MediaStatusUploaded {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "source audio is not an uploaded audio sample")
	}
	if s.signer == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "storage signer not configured")
	}
	url, err := s.signer.SignedReadURL(s.signer.DefaultBucket(), media.GCSKey, s.gcs.DownloadURLExpiry)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign source audio url")
	}
	return url, nil
}
