package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubscriptionPlan captures the local metadata for a purchasable plan.
type SubscriptionPlan struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`

	PriceWeekly  *decimal.Decimal `gorm:"column:price_weekly;type:numeric(12,2)"`
	PriceMonthly decimal.Decimal  `gorm:"column:price_monthly;type:numeric(12,2);not null"`
	PriceYearly  decimal.Decimal  `gorm:"column:price_yearly;type:numeric(12,2);not null"`
	CurrencyCode string           `gorm:"column:currency_code;not null;default:'usd'"`

	StripePriceWeeklyID  *string `gorm:"column:stripe_price_weekly_id"`
	StripePriceMonthlyID *string `gorm:"column:stripe_price_monthly_id"`
	StripePriceYearlyID  *string `gorm:"column:stripe_price_yearly_id"`

	// Monthly generation quotas; zero means the feature is unavailable on the plan.
	AudioQuota int `gorm:"column:audio_quota;not null;default:0"`
	VideoQuota int `gorm:"column:video_quota;not null;default:0"`

	Features  json.RawMessage `gorm:"column:features;type:jsonb"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	SortOrder int             `gorm:"column:sort_order;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
