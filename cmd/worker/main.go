package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundsmith-ai/soundsmith-backend/internal/albums"
	"github.com/soundsmith-ai/soundsmith-backend/internal/events"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation/provider"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/migrate"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pubsub"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "generation-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "generation-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	providerClient, err := provider.NewClient(cfg.Provider)
	requireResource(ctx, logg, "provider client", err)

	publisher, err := events.NewPubSubPublisher(pubsubClient.GenerationPublisher())
	requireResource(ctx, logg, "event publisher", err)

	trackRepo := tracks.NewRepository(dbClient.DB())
	tracksService, err := tracks.NewService(tracks.ServiceParams{
		Repo:   trackRepo,
		Albums: albums.NewRepository(dbClient.DB()),
		Cache:  redisClient,
		Logger: logg,
	})
	requireResource(ctx, logg, "tracks service", err)

	worker, err := generation.NewWorker(generation.WorkerParams{
		Tracks:    trackRepo,
		Provider:  providerClient,
		Publisher: publisher,
		Cache:     tracksService,
		Config:    cfg.Generation,
		Logger:    logg,
		Metrics:   metrics.NewPollerMetrics(prometheus.DefaultRegisterer),
	})
	requireResource(ctx, logg, "generation worker", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "generation worker ready")

	if err := worker.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "generation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "generation worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
