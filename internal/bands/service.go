package bands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/generation/provider"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	dbpkg "github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/jobpoller"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
)

// Bands hold up to four positional members. Position 1 is the lead singer.
const (
	MinPosition = 1
	MaxPosition = 4
)

// Service defines the virtual band operations.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*BandDTO, error)
	Create(ctx context.Context, userID uuid.UUID, req CreateBandRequest) (*BandDTO, error)
	Rename(ctx context.Context, userID uuid.UUID, req RenameBandRequest) (*BandDTO, error)
	AddMember(ctx context.Context, userID uuid.UUID, req AddMemberRequest) (*MemberDTO, error)
	UpdateMember(ctx context.Context, userID, memberID uuid.UUID, req UpdateMemberRequest) (*MemberDTO, error)
	RemoveMember(ctx context.Context, userID, memberID uuid.UUID) error
	GeneratePortrait(ctx context.Context, userID, memberID uuid.UUID, req GenerateImageRequest) (*MemberDTO, error)
	GenerateBandPhoto(ctx context.Context, userID uuid.UUID, req GenerateImageRequest) (*BandDTO, error)
}

// CreateBandRequest names a new band.
type CreateBandRequest struct {
	Name string `json:"name" validate:"required,min=1,max=80"`
}

// RenameBandRequest renames the user's band.
type RenameBandRequest struct {
	Name string `json:"name" validate:"required,min=1,max=80"`
}

// AddMemberRequest fills one of the four position slots.
type AddMemberRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=80"`
	RoleName string `json:"role_name" validate:"omitempty,max=80"`
	Position int    `json:"position" validate:"required,min=1,max=4"`
}

// UpdateMemberRequest carries the mutable member fields.
type UpdateMemberRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	RoleName *string `json:"role_name,omitempty" validate:"omitempty,max=80"`
}

// GenerateImageRequest customizes an AI portrait or band photo prompt.
type GenerateImageRequest struct {
	Prompt string `json:"prompt,omitempty" validate:"omitempty,max=1000"`
	Style  string `json:"style,omitempty" validate:"omitempty,max=80"`
}

// BandDTO is the band shape returned to clients.
type BandDTO struct {
	ID          uuid.UUID               `json:"id"`
	Name        string                  `json:"name"`
	PhotoURL    *string                 `json:"photo_url,omitempty"`
	PhotoStatus *enums.GenerationStatus `json:"photo_status,omitempty"`
	Members     []MemberDTO             `json:"members"`
}

// MemberDTO is one positional band member.
type MemberDTO struct {
	ID             uuid.UUID               `json:"id"`
	Position       int                     `json:"position"`
	Name           string                  `json:"name"`
	RoleName       string                  `json:"role_name"`
	IsLeadSinger   bool                    `json:"is_lead_singer"`
	PortraitURL    *string                 `json:"portrait_url,omitempty"`
	PortraitStatus *enums.GenerationStatus `json:"portrait_status,omitempty"`
}

type bandRepository interface {
	CreateBand(ctx context.Context, band *models.Band) error
	FindBandByUser(ctx context.Context, userID uuid.UUID) (*models.Band, error)
	UpdateBandName(ctx context.Context, id uuid.UUID, name string) error
	SetBandPhotoJob(ctx context.Context, id uuid.UUID, jobID string) error
	SetBandPhotoResult(ctx context.Context, id uuid.UUID, photoURL string) error
	SetBandPhotoFailed(ctx context.Context, id uuid.UUID) error
	CreateMember(ctx context.Context, member *models.BandMember) error
	FindMemberByID(ctx context.Context, id uuid.UUID) (*models.BandMember, error)
	ListMembers(ctx context.Context, bandID uuid.UUID) ([]models.BandMember, error)
	UpdateMember(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteMember(ctx context.Context, id uuid.UUID) error
	SetMemberPortraitJob(ctx context.Context, id uuid.UUID, jobID string) error
	SetMemberPortraitResult(ctx context.Context, id uuid.UUID, portraitURL string) error
	SetMemberPortraitFailed(ctx context.Context, id uuid.UUID) error
}

type imageProvider interface {
	StartImage(ctx context.Context, req provider.StartImageRequest) (*provider.StartResponse, error)
	JobStatus(ctx context.Context, jobID string) (jobpoller.Snapshot, error)
}

// ServiceParams bundles the band service dependencies.
type ServiceParams struct {
	Repo     bandRepository
	Provider imageProvider
	Config   config.GenerationConfig
	Logger   *logger.Logger
	Metrics  *metrics.PollerMetrics
}

type service struct {
	repo     bandRepository
	provider imageProvider
	cfg      config.GenerationConfig
	logg     *logger.Logger
	metrics  *metrics.PollerMetrics
}

// NewService wires band dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "bands repository required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "synthesis provider client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{
		repo:     params.Repo,
		provider: params.Provider,
		cfg:      params.Config,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*BandDTO, error) {
	band, err := s.ownedBand(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, band)
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req CreateBandRequest) (*BandDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "band name required")
	}

	band := &models.Band{UserID: userID, Name: name}
	if err := s.repo.CreateBand(ctx, band); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "band already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create band")
	}
	return &BandDTO{ID: band.ID, Name: band.Name, Members: []MemberDTO{}}, nil
}

func (s *service) Rename(ctx context.Context, userID uuid.UUID, req RenameBandRequest) (*BandDTO, error) {
	band, err := s.ownedBand(ctx, userID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "band name required")
	}
	if err := s.repo.UpdateBandName(ctx, band.ID, name); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rename band")
	}
	band.Name = name
	return s.toDTO(ctx, band)
}

func (s *service) AddMember(ctx context.Context, userID uuid.UUID, req AddMemberRequest) (*MemberDTO, error) {
	band, err := s.ownedBand(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Position < MinPosition || req.Position > MaxPosition {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("position must be between %d and %d", MinPosition, MaxPosition))
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member name required")
	}

	member := &models.BandMember{
		BandID:   band.ID,
		Position: req.Position,
		Name:     name,
		RoleName: strings.TrimSpace(req.RoleName),
	}
	if err := s.repo.CreateMember(ctx, member); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "position already filled")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add member")
	}
	dto := memberDTO(member)
	return &dto, nil
}

func (s *service) UpdateMember(ctx context.Context, userID, memberID uuid.UUID, req UpdateMemberRequest) (*MemberDTO, error) {
	member, err := s.ownedMember(ctx, userID, memberID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "member name required")
		}
		updates["name"] = name
		member.Name = name
	}
	if req.RoleName != nil {
		role := strings.TrimSpace(*req.RoleName)
		updates["role_name"] = role
		member.RoleName = role
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateMember(ctx, member.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update member")
		}
	}
	dto := memberDTO(member)
	return &dto, nil
}

func (s *service) RemoveMember(ctx context.Context, userID, memberID uuid.UUID) error {
	member, err := s.ownedMember(ctx, userID, memberID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMember(ctx, member.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove member")
	}
	return nil
}

func (s *service) GeneratePortrait(ctx context.Context, userID, memberID uuid.UUID, req GenerateImageRequest) (*MemberDTO, error) {
	member, err := s.ownedMember(ctx, userID, memberID)
	if err != nil {
		return nil, err
	}
	if member.PortraitStatus != nil && *member.PortraitStatus == enums.GenerationStatusGenerating {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "portrait generation already in progress")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = portraitPrompt(member)
	}
	started, err := s.provider.StartImage(ctx, provider.StartImageRequest{Prompt: prompt, Style: req.Style})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit portrait job")
	}
	if err := s.repo.SetMemberPortraitJob(ctx, member.ID, started.JobID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record portrait job")
	}
	generating := enums.GenerationStatusGenerating
	member.PortraitStatus = &generating
	member.PortraitJobID = &started.JobID

	s.watchImageJob(ctx, started.JobID,
		func(ctx context.Context, url string) {
			if err := s.repo.SetMemberPortraitResult(ctx, member.ID, url); err != nil {
				s.logg.Error(ctx, "failed to store portrait result", err)
			}
		},
		func(ctx context.Context, reason string) {
			if err := s.repo.SetMemberPortraitFailed(ctx, member.ID); err != nil {
				s.logg.Error(ctx, "failed to mark portrait failed", err)
			}
		},
	)

	dto := memberDTO(member)
	return &dto, nil
}

func (s *service) GenerateBandPhoto(ctx context.Context, userID uuid.UUID, req GenerateImageRequest) (*BandDTO, error) {
	band, err := s.ownedBand(ctx, userID)
	if err != nil {
		return nil, err
	}
	if band.PhotoStatus != nil && *band.PhotoStatus == enums.GenerationStatusGenerating {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "band photo generation already in progress")
	}
	members, err := s.repo.ListMembers(ctx, band.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = bandPhotoPrompt(band, members)
	}
	started, err := s.provider.StartImage(ctx, provider.StartImageRequest{Prompt: prompt, Style: req.Style})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit band photo job")
	}
	if err := s.repo.SetBandPhotoJob(ctx, band.ID, started.JobID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record band photo job")
	}
	generating := enums.GenerationStatusGenerating
	band.PhotoStatus = &generating
	band.PhotoJobID = &started.JobID

	s.watchImageJob(ctx, started.JobID,
		func(ctx context.Context, url string) {
			if err := s.repo.SetBandPhotoResult(ctx, band.ID, url); err != nil {
				s.logg.Error(ctx, "failed to store band photo result", err)
			}
		},
		func(ctx context.Context, reason string) {
			if err := s.repo.SetBandPhotoFailed(ctx, band.ID); err != nil {
				s.logg.Error(ctx, "failed to mark band photo failed", err)
			}
		},
	)

	dto := BandDTO{
		ID:          band.ID,
		Name:        band.Name,
		PhotoURL:    band.PhotoURL,
		PhotoStatus: band.PhotoStatus,
		Members:     memberDTOs(members),
	}
	return &dto, nil
}

// watchImageJob polls an image job in the background. The watcher outlives
// the originating request.
func (s *service) watchImageJob(ctx context.Context, jobID string, onCompleted func(context.Context, string), onFailed func(context.Context, string)) {
	interval := s.cfg.ImagePollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	bg := context.WithoutCancel(ctx)
	poller, err := jobpoller.New(jobpoller.Config{
		Kind:        "image",
		Interval:    interval,
		MaxAttempts: s.cfg.MaxPollAttempts,
		FetchStatus: func(ctx context.Context) (jobpoller.Snapshot, error) {
			return s.provider.JobStatus(ctx, jobID)
		},
		OnCompleted: onCompleted,
		OnFailed:    onFailed,
		Logger:      s.logg,
		Metrics:     s.metrics,
	})
	if err != nil {
		s.logg.Error(bg, "failed to build image poller", err)
		return
	}

	go func() {
		if err := poller.Run(bg); err != nil {
			if errors.Is(err, jobpoller.ErrAttemptsExhausted) {
				onFailed(bg, "image generation timed out")
				return
			}
			s.logg.Error(bg, "image poll loop ended unexpectedly", err)
		}
	}()
}

func (s *service) ownedBand(ctx context.Context, userID uuid.UUID) (*models.Band, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	band, err := s.repo.FindBandByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "band not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load band")
	}
	return band, nil
}

func (s *service) ownedMember(ctx context.Context, userID, memberID uuid.UUID) (*models.BandMember, error) {
	band, err := s.ownedBand(ctx, userID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.FindMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	if member.BandID != band.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "member belongs to another band")
	}
	return member, nil
}

func (s *service) toDTO(ctx context.Context, band *models.Band) (*BandDTO, error) {
	members, err := s.repo.ListMembers(ctx, band.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return &BandDTO{
		ID:          band.ID,
		Name:        band.Name,
		PhotoURL:    band.PhotoURL,
		PhotoStatus: band.PhotoStatus,
		Members:     memberDTOs(members),
	}, nil
}

func memberDTOs(rows []models.BandMember) []MemberDTO {
	out := make([]MemberDTO, 0, len(rows))
	for i := range rows {
		out = append(out, memberDTO(&rows[i]))
	}
	return out
}

func memberDTO(m *models.BandMember) MemberDTO {
	return MemberDTO{
		ID:             m.ID,
		Position:       m.Position,
		Name:           m.Name,
		RoleName:       m.RoleName,
		IsLeadSinger:   m.Position == MinPosition,
		PortraitURL:    m.PortraitURL,
		PortraitStatus: m.PortraitStatus,
	}
}

func portraitPrompt(m *models.BandMember) string {
	role := m.RoleName
	if role == "" {
		role = "musician"
	}
	return fmt.Sprintf("Portrait of %s, %s in a virtual band, studio lighting, album art style", m.Name, role)
}

func bandPhotoPrompt(band *models.Band, members []models.BandMember) string {
	if len(members) == 0 {
		return fmt.Sprintf("Promotional photo of the band %q, stage lighting", band.Name)
	}
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return fmt.Sprintf("Promotional group photo of the band %q featuring %s, stage lighting", band.Name, strings.Join(names, ", "))
}
