package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/comments"
	"github.com/soundsmith-ai/soundsmith-backend/internal/plans"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

type userAdminStore interface {
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID, status enums.PlanStatus) error
}

type planAdminStore interface {
	Create(ctx context.Context, plan *models.SubscriptionPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	ListAll(ctx context.Context) ([]models.SubscriptionPlan, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type trackAdminStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service covers the operator surface: user management, plan catalog upkeep,
// track moderation, and database inspection.
type Service struct {
	users    userAdminStore
	plans    planAdminStore
	tracks   trackAdminStore
	txRunner txRunner
	inspect  *gorm.DB
	logg     *logger.Logger
}

// ServiceParams collects the admin service dependencies.
type ServiceParams struct {
	Users    userAdminStore
	Plans    planAdminStore
	Tracks   trackAdminStore
	TxRunner txRunner
	DB       *gorm.DB
	Logger   *logger.Logger
}

// NewService wires the admin service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user store required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan store required")
	}
	if params.Tracks == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "track store required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database handle required")
	}
	return &Service{
		users:    params.Users,
		plans:    params.Plans,
		tracks:   params.Tracks,
		txRunner: params.TxRunner,
		inspect:  params.DB,
		logg:     params.Logger,
	}, nil
}

// AdminUserDTO is the operator view of an account.
type AdminUserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	PlanID      *uuid.UUID `json:"plan_id,omitempty"`
	PlanStatus  string     `json:"plan_status"`
	AudioUsed   int        `json:"audio_generations_used"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UserListResult is one offset page of accounts.
type UserListResult struct {
	Users []AdminUserDTO `json:"users"`
	Total int64          `json:"total"`
}

// ListUsers returns an offset page of accounts, newest first.
func (s *Service) ListUsers(ctx context.Context, limit, offset int) (*UserListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, total, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	dtos := make([]AdminUserDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, adminUserDTO(&rows[i]))
	}
	return &UserListResult{Users: dtos, Total: total}, nil
}

// SetUserActive suspends or reinstates an account.
func (s *Service) SetUserActive(ctx context.Context, actorID, userID uuid.UUID, active bool) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !active && user.ID == actorID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot suspend your own account")
	}
	if !active && user.Role == enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin accounts cannot be suspended")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account state")
	}
	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("account %s active=%t", userID, active))
	}
	return nil
}

// OverrideUserPlan pins a user to a plan and status outside of billing.
func (s *Service) OverrideUserPlan(ctx context.Context, userID uuid.UUID, planID *uuid.UUID, rawStatus string) error {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return err
	}
	status, err := enums.ParsePlanStatus(rawStatus)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan status")
	}
	if planID != nil {
		if _, err := s.plans.FindByID(ctx, *planID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
		}
	}
	if err := s.users.SetPlan(ctx, userID, planID, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "override user plan")
	}
	return nil
}

// PlanRequest carries the editable plan catalog fields.
type PlanRequest struct {
	Name                 string  `json:"name" validate:"required,min=1,max=120"`
	Description          string  `json:"description"`
	PriceWeekly          *string `json:"price_weekly,omitempty"`
	PriceMonthly         string  `json:"price_monthly" validate:"required"`
	PriceYearly          string  `json:"price_yearly" validate:"required"`
	CurrencyCode         string  `json:"currency_code"`
	StripePriceWeeklyID  *string `json:"stripe_price_weekly_id,omitempty"`
	StripePriceMonthlyID *string `json:"stripe_price_monthly_id,omitempty"`
	StripePriceYearlyID  *string `json:"stripe_price_yearly_id,omitempty"`
	AudioQuota           int     `json:"audio_quota" validate:"min=0"`
	VideoQuota           int     `json:"video_quota" validate:"min=0"`
	IsActive             *bool   `json:"is_active,omitempty"`
	SortOrder            int     `json:"sort_order"`
}

// CreatePlan adds a plan to the catalog.
func (s *Service) CreatePlan(ctx context.Context, req PlanRequest) (*plans.PlanDTO, error) {
	plan, err := planFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	dto := plans.FromModel(plan)
	return &dto, nil
}

// UpdatePlan edits an existing catalog entry.
func (s *Service) UpdatePlan(ctx context.Context, id uuid.UUID, req PlanRequest) (*plans.PlanDTO, error) {
	if _, err := s.plans.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	plan, err := planFromRequest(req)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{
		"name":                    plan.Name,
		"description":             plan.Description,
		"price_weekly":            plan.PriceWeekly,
		"price_monthly":           plan.PriceMonthly,
		"price_yearly":            plan.PriceYearly,
		"currency_code":           plan.CurrencyCode,
		"stripe_price_weekly_id":  plan.StripePriceWeeklyID,
		"stripe_price_monthly_id": plan.StripePriceMonthlyID,
		"stripe_price_yearly_id":  plan.StripePriceYearlyID,
		"audio_quota":             plan.AudioQuota,
		"video_quota":             plan.VideoQuota,
		"is_active":               plan.IsActive,
		"sort_order":              plan.SortOrder,
	}
	if err := s.plans.Update(ctx, id, updates); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	updated, err := s.plans.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload plan")
	}
	dto := plans.FromModel(updated)
	return &dto, nil
}

// ListPlans returns the full catalog, inactive entries included.
func (s *Service) ListPlans(ctx context.Context) ([]plans.PlanDTO, error) {
	rows, err := s.plans.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	out := make([]plans.PlanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, plans.FromModel(&rows[i]))
	}
	return out, nil
}

// ForcePrivateTrack pulls a track out of public view and the gallery.
func (s *Service) ForcePrivateTrack(ctx context.Context, trackID uuid.UUID) error {
	if _, err := s.loadTrack(ctx, trackID); err != nil {
		return err
	}
	updates := map[string]any{
		"visibility":      enums.TrackVisibilityPrivate,
		"gallery_visible": false,
	}
	if err := s.tracks.Update(ctx, trackID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update track visibility")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithTrackID(ctx, trackID.String()), "track forced private")
	}
	return nil
}

// DeleteTrack removes a track and its comments.
func (s *Service) DeleteTrack(ctx context.Context, trackID uuid.UUID) error {
	if _, err := s.loadTrack(ctx, trackID); err != nil {
		return err
	}
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := comments.NewRepository(tx).DeleteByTrack(ctx, trackID); err != nil {
			return err
		}
		return tracks.NewRepository(tx).Delete(ctx, trackID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete track")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithTrackID(ctx, trackID.String()), "track removed by moderation")
	}
	return nil
}

func (s *Service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *Service) loadTrack(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	track, err := s.tracks.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	return track, nil
}

func planFromRequest(req PlanRequest) (*models.SubscriptionPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	monthly, err := decimal.NewFromString(req.PriceMonthly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid monthly price")
	}
	yearly, err := decimal.NewFromString(req.PriceYearly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid yearly price")
	}
	var weekly *decimal.Decimal
	if req.PriceWeekly != nil {
		parsed, err := decimal.NewFromString(*req.PriceWeekly)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid weekly price")
		}
		weekly = &parsed
	}
	if monthly.IsNegative() || yearly.IsNegative() || (weekly != nil && weekly.IsNegative()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	if req.AudioQuota < 0 || req.VideoQuota < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quotas cannot be negative")
	}

	currency := strings.ToLower(strings.TrimSpace(req.CurrencyCode))
	if currency == "" {
		currency = "usd"
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	return &models.SubscriptionPlan{
		Name:                 name,
		Description:          strings.TrimSpace(req.Description),
		PriceWeekly:          weekly,
		PriceMonthly:         monthly,
		PriceYearly:          yearly,
		CurrencyCode:         currency,
		StripePriceWeeklyID:  req.StripePriceWeeklyID,
		StripePriceMonthlyID: req.StripePriceMonthlyID,
		StripePriceYearlyID:  req.StripePriceYearlyID,
		AudioQuota:           req.AudioQuota,
		VideoQuota:           req.VideoQuota,
		IsActive:             active,
		SortOrder:            req.SortOrder,
	}, nil
}

func adminUserDTO(u *models.User) AdminUserDTO {
	return AdminUserDTO{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role.String(),
		PlanID:      u.PlanID,
		PlanStatus:  u.PlanStatus.String(),
		AudioUsed:   u.AudioGenerationsUsed,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}
