package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

const usagePeriodDays = 30

type usageResetRepo interface {
	ResetUsageBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// UsageResetJobParams configure the monthly quota reset.
type UsageResetJobParams struct {
	Logger     *logger.Logger
	Users      usageResetRepo
	PeriodDays int
}

// NewUsageResetJob zeroes generation counters for users whose billing
// period has elapsed and stamps the start of the next one.
func NewUsageResetJob(params UsageResetJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	period := params.PeriodDays
	if period <= 0 {
		period = usagePeriodDays
	}
	return &usageResetJob{
		logg:       params.Logger,
		users:      params.Users,
		periodDays: period,
		now:        time.Now,
	}, nil
}

type usageResetJob struct {
	logg       *logger.Logger
	users      usageResetRepo
	periodDays int
	now        func() time.Time
}

func (j *usageResetJob) Name() string { return "usage-reset" }

func (j *usageResetJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-time.Duration(j.periodDays) * 24 * time.Hour)
	reset, err := j.users.ResetUsageBefore(ctx, cutoff, now)
	if err != nil {
		return fmt.Errorf("usage reset: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"period_days": j.periodDays,
		"users_reset": reset,
	})
	j.logg.Info(logCtx, "usage reset complete")
	return nil
}
