package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID            uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string           `gorm:"type:text;not null;uniqueIndex"`
	EmailVerified bool             `gorm:"column:email_verified;not null;default:false"`
	PasswordHash  string           `gorm:"column:password_hash;not null"`
	DisplayName   string           `gorm:"column:display_name;not null"`
	AvatarURL     *string          `gorm:"column:avatar_url"`
	Role          enums.UserRole   `gorm:"column:role;type:user_role;not null;default:'member'"`
	PlanID        *uuid.UUID       `gorm:"column:plan_id;type:uuid"`
	PlanStatus    enums.PlanStatus `gorm:"column:plan_status;type:plan_status;not null;default:'free'"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex"`

	// Monthly usage counters, reset by the cron worker.
	AudioGenerationsUsed int       `gorm:"column:audio_generations_used;not null;default:0"`
	VideoGenerationsUsed int       `gorm:"column:video_generations_used;not null;default:0"`
	UsagePeriodStart     time.Time `gorm:"column:usage_period_start;not null;default:now()"`

	IsActive    bool       `gorm:"column:is_active;not null;default:true"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
