package plans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
)

// Repository exposes subscription plan persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a plans repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new plan.
func (r *Repository) Create(ctx context.Context, plan *models.SubscriptionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// FindByID loads a plan by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// FindByStripePriceID resolves the plan attached to any of its Stripe prices.
func (r *Repository) FindByStripePriceID(ctx context.Context, priceID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("stripe_price_weekly_id = ? OR stripe_price_monthly_id = ? OR stripe_price_yearly_id = ?", priceID, priceID, priceID).
		First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListActive returns purchasable plans in display order.
func (r *Repository) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var rows []models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Where("is_active").
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every plan, active or not, for the admin panel.
func (r *Repository) ListAll(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var rows []models.SubscriptionPlan
	if err := r.db.WithContext(ctx).
		Order("sort_order ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update writes the mutable plan fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.SubscriptionPlan{}).
		Where("id = ?", id).
		Updates(updates).Error
}
