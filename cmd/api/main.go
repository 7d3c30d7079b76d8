package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/soundsmith-ai/soundsmith-backend/api/controllers"
	"github.com/soundsmith-ai/soundsmith-backend/api/routes"
	"github.com/soundsmith-ai/soundsmith-backend/internal/admin"
	"github.com/soundsmith-ai/soundsmith-backend/internal/albums"
	"github.com/soundsmith-ai/soundsmith-backend/internal/auth"
	"github.com/soundsmith-ai/soundsmith-backend/internal/bands"
	"github.com/soundsmith-ai/soundsmith-backend/internal/billing"
	"github.com/soundsmith-ai/soundsmith-backend/internal/comments"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation/provider"
	"github.com/soundsmith-ai/soundsmith-backend/internal/likes"
	"github.com/soundsmith-ai/soundsmith-backend/internal/media"
	"github.com/soundsmith-ai/soundsmith-backend/internal/notifications"
	"github.com/soundsmith-ai/soundsmith-backend/internal/plans"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/internal/users"
	stripewebhook "github.com/soundsmith-ai/soundsmith-backend/internal/webhooks/stripe"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/auth/session"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/metrics"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/migrate"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/storage/gcs"
	pkgstripe "github.com/soundsmith-ai/soundsmith-backend/pkg/stripe"
)

const stripeDedupeTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	providerClient, err := provider.NewClient(cfg.Provider)
	if err != nil {
		logg.Error(context.Background(), "failed to create provider client", err)
		os.Exit(1)
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	trackRepo := tracks.NewRepository(dbClient.DB())
	albumRepo := albums.NewRepository(dbClient.DB())
	bandRepo := bands.NewRepository(dbClient.DB())
	commentRepo := comments.NewRepository(dbClient.DB())
	planRepo := plans.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())
	notificationRepo := notifications.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	requireService(logg, "auth", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	requireService(logg, "register", err)

	usersService, err := users.NewService(userRepo)
	requireService(logg, "users", err)

	tracksService, err := tracks.NewService(tracks.ServiceParams{
		Repo:   trackRepo,
		Albums: albumRepo,
		Cache:  redisClient,
		Logger: logg,
	})
	requireService(logg, "tracks", err)

	generationService, err := generation.NewService(generation.ServiceParams{
		Tracks:   trackRepo,
		Users:    userRepo,
		Plans:    planRepo,
		Albums:   albumRepo,
		Media:    mediaRepo,
		Provider: providerClient,
		Signer:   gcsClient,
		Cache:    tracksService,
		GCS:      cfg.GCS,
		Logger:   logg,
	})
	requireService(logg, "generation", err)

	albumsService, err := albums.NewService(albumRepo, trackRepo, dbClient)
	requireService(logg, "albums", err)

	bandsService, err := bands.NewService(bands.ServiceParams{
		Repo:     bandRepo,
		Provider: providerClient,
		Config:   cfg.Generation,
		Logger:   logg,
		Metrics:  metrics.NewPollerMetrics(prometheus.DefaultRegisterer),
	})
	requireService(logg, "bands", err)

	likesService, err := likes.NewService(trackRepo, dbClient)
	requireService(logg, "likes", err)

	commentsService, err := comments.NewService(commentRepo, trackRepo, dbClient)
	requireService(logg, "comments", err)

	plansService, err := plans.NewService(planRepo)
	requireService(logg, "plans", err)

	stripeBillingClient := billing.NewStripeClient(stripeClient)
	billingService, err := billing.NewService(billing.ServiceParams{
		Users:  userRepo,
		Plans:  planRepo,
		Subs:   billingRepo,
		Stripe: stripeBillingClient,
		Config: cfg.Stripe,
		Logger: logg,
	})
	requireService(logg, "billing", err)

	mediaService, err := media.NewService(media.ServiceParams{
		Repo:   mediaRepo,
		Store:  gcsClient,
		GCS:    cfg.GCS,
		Media:  cfg.Media,
		Logger: logg,
	})
	requireService(logg, "media", err)

	notificationsService, err := notifications.NewService(notificationRepo)
	requireService(logg, "notifications", err)

	adminService, err := admin.NewService(admin.ServiceParams{
		Users:    userRepo,
		Plans:    planRepo,
		Tracks:   trackRepo,
		TxRunner: dbClient,
		DB:       dbClient.DB(),
		Logger:   logg,
	})
	requireService(logg, "admin", err)

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Stripe:            stripeBillingClient,
		TransactionRunner: dbClient,
	})
	requireService(logg, "stripe webhook", err)

	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripeDedupeTTL, "stripe")
	requireService(logg, "stripe idempotency guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:  cfg,
			Logger:  logg,
			Redis:   redisClient,
			Session: sessionManager,
			HealthChecks: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"gcs":      gcsClient,
			},
			Auth:          authService,
			Register:      registerService,
			Users:         usersService,
			Tracks:        tracksService,
			Generation:    generationService,
			Albums:        albumsService,
			Bands:         bandsService,
			Likes:         likesService,
			Comments:      commentsService,
			Plans:         plansService,
			Billing:       billingService,
			Media:         mediaService,
			Notifications: notificationsService,
			Admin:         adminService,
			StripeClient:  stripeClient,
			StripeWebhook: stripeWebhookService,
			StripeGuard:   stripeGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
