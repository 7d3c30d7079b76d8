package plans

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

// Service exposes the public plan catalog.
type Service interface {
	List(ctx context.Context) ([]PlanDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*PlanDTO, error)
}

// PlanDTO is the catalog entry shown on the pricing page.
type PlanDTO struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	PriceWeekly  *decimal.Decimal `json:"price_weekly,omitempty"`
	PriceMonthly decimal.Decimal  `json:"price_monthly"`
	PriceYearly  decimal.Decimal  `json:"price_yearly"`
	CurrencyCode string           `json:"currency_code"`
	AudioQuota   int              `json:"audio_quota"`
	VideoQuota   int              `json:"video_quota"`
	Features     json.RawMessage  `json:"features,omitempty"`
	SortOrder    int              `json:"sort_order"`
}

type planRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
	ListActive(ctx context.Context) ([]models.SubscriptionPlan, error)
}

type service struct {
	repo planRepository
}

// NewService wires the plan catalog.
func NewService(repo planRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]PlanDTO, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	out := make([]PlanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PlanDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	dto := FromModel(plan)
	return &dto, nil
}

// FromModel converts a persisted plan into its catalog shape.
func FromModel(p *models.SubscriptionPlan) PlanDTO {
	return PlanDTO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PriceWeekly:  p.PriceWeekly,
		PriceMonthly: p.PriceMonthly,
		PriceYearly:  p.PriceYearly,
		CurrencyCode: p.CurrencyCode,
		AudioQuota:   p.AudioQuota,
		VideoQuota:   p.VideoQuota,
		Features:     p.Features,
		SortOrder:    p.SortOrder,
	}
}
