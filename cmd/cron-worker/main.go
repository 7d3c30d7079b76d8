package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundsmith-ai/soundsmith-backend/internal/cron"
	"github.com/soundsmith-ai/soundsmith-backend/internal/media"
	"github.com/soundsmith-ai/soundsmith-backend/internal/notifications"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/internal/users"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/migrate"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	trackRepo := tracks.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	stuckJob, err := cron.NewStuckGenerationJob(cron.StuckGenerationJobParams{
		Logger: logg,
		Tracks: trackRepo,
	})
	requireJob(logg, "stuck-generation-sweep", err)

	usageJob, err := cron.NewUsageResetJob(cron.UsageResetJobParams{
		Logger: logg,
		Users:  userRepo,
	})
	requireJob(logg, "usage-reset", err)

	mediaJob, err := cron.NewPendingMediaCleanupJob(cron.PendingMediaCleanupJobParams{
		Logger: logg,
		Media:  mediaRepo,
		Store:  gcsClient,
	})
	requireJob(logg, "pending-media-cleanup", err)

	retentionJob, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Logger:        logg,
		Notifications: notificationRepo,
	})
	requireJob(logg, "notification-retention", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(stuckJob, usageJob, mediaJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireJob(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("failed to create cron job: %s", name), err)
	os.Exit(1)
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
