package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID        `json:"id"`
	Email         string           `json:"email"`
	EmailVerified bool             `json:"email_verified"`
	DisplayName   string           `json:"display_name"`
	AvatarURL     *string          `json:"avatar_url,omitempty"`
	Role          enums.UserRole   `json:"role"`
	PlanID        *uuid.UUID       `json:"plan_id,omitempty"`
	PlanStatus    enums.PlanStatus `json:"plan_status"`

	// Derived from plan status at read time so clients never compute it.
	IsFreePlan bool `json:"is_free_plan"`

	AudioGenerationsUsed int       `json:"audio_generations_used"`
	VideoGenerationsUsed int       `json:"video_generations_used"`
	UsagePeriodStart     time.Time `json:"usage_period_start"`

	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         enums.UserRole
	IsActive     *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:                   u.ID,
		Email:                u.Email,
		EmailVerified:        u.EmailVerified,
		DisplayName:          u.DisplayName,
		AvatarURL:            u.AvatarURL,
		Role:                 u.Role,
		PlanID:               u.PlanID,
		PlanStatus:           u.PlanStatus,
		IsFreePlan:           u.PlanStatus != enums.PlanStatusActive,
		AudioGenerationsUsed: u.AudioGenerationsUsed,
		VideoGenerationsUsed: u.VideoGenerationsUsed,
		UsagePeriodStart:     u.UsagePeriodStart,
		IsActive:             u.IsActive,
		LastLoginAt:          u.LastLoginAt,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleMember
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		DisplayName:  c.DisplayName,
		Role:         role,
		PlanStatus:   enums.PlanStatusFree,
		IsActive:     isActive,
	}
}
