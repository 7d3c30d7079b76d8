package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundsmith-ai/soundsmith-backend/api/controllers"
	webhookcontrollers "github.com/soundsmith-ai/soundsmith-backend/api/controllers/webhooks"
	"github.com/soundsmith-ai/soundsmith-backend/api/middleware"
	"github.com/soundsmith-ai/soundsmith-backend/internal/admin"
	"github.com/soundsmith-ai/soundsmith-backend/internal/albums"
	"github.com/soundsmith-ai/soundsmith-backend/internal/auth"
	"github.com/soundsmith-ai/soundsmith-backend/internal/bands"
	"github.com/soundsmith-ai/soundsmith-backend/internal/comments"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation"
	"github.com/soundsmith-ai/soundsmith-backend/internal/likes"
	"github.com/soundsmith-ai/soundsmith-backend/internal/plans"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/internal/users"
	stripewebhook "github.com/soundsmith-ai/soundsmith-backend/internal/webhooks/stripe"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/auth/session"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

type stripeSigner interface {
	SigningSecret() string
}

// Deps collects everything the router wires together.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Redis        *redis.Client
	Session      sessionManager
	HealthChecks map[string]controllers.Pinger

	Auth          auth.Service
	Register      auth.RegisterService
	Users         users.Service
	Tracks        tracks.Service
	Generation    generation.Service
	Albums        albums.Service
	Bands         bands.Service
	Likes         likes.Service
	Comments      comments.Service
	Plans         plans.Service
	Billing       controllers.BillingService
	Media         controllers.MediaService
	Notifications controllers.NotificationsService
	Admin         *admin.Service

	StripeClient  stripeSigner
	StripeWebhook *stripewebhook.Service
	StripeGuard   *stripewebhook.IdempotencyGuard
}

// NewRouter builds the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthChecks))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/gallery", controllers.PublicGallery(deps.Tracks, logg))
		r.Get("/tracks/{trackId}", controllers.PublicTrack(deps.Tracks, logg))
		r.Get("/tracks/{trackId}/comments", controllers.CommentList(deps.Comments, logg))
		r.Get("/albums/shared/{shareToken}", controllers.PublicSharedAlbum(deps.Albums, logg))
		r.Get("/plans", controllers.PlanList(deps.Plans, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeClient, deps.StripeGuard, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Register, deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Session, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Session, cfg.JWT, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AdminAuthLogin(deps.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/me", controllers.UserProfile(deps.Users, logg))
			r.Put("/me", controllers.UserProfileUpdate(deps.Users, logg))
		})

		r.Route("/tracks", func(r chi.Router) {
			r.Get("/", controllers.TrackList(deps.Tracks, logg))
			r.Get("/{trackId}", controllers.TrackGet(deps.Tracks, logg))
			r.Patch("/{trackId}", controllers.TrackUpdate(deps.Tracks, logg))
			r.Delete("/{trackId}", controllers.TrackDelete(deps.Tracks, logg))
			r.Post("/{trackId}/like", controllers.LikeToggle(deps.Likes, logg))
			r.Post("/{trackId}/comments", controllers.CommentCreate(deps.Comments, logg))
			r.Get("/{trackId}/comments", controllers.CommentList(deps.Comments, logg))
		})
		r.Delete("/comments/{commentId}", controllers.CommentDelete(deps.Comments, logg))

		r.Route("/generations", func(r chi.Router) {
			r.Post("/music", controllers.GenerationStart(deps.Generation, logg))
			r.Get("/{trackId}/status", controllers.GenerationStatus(deps.Generation, logg))
		})

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", controllers.AlbumList(deps.Albums, logg))
			r.Post("/", controllers.AlbumCreate(deps.Albums, logg))
			r.Patch("/{albumId}", controllers.AlbumUpdate(deps.Albums, logg))
			r.Delete("/{albumId}", controllers.AlbumDelete(deps.Albums, logg))
			r.Post("/{albumId}/default", controllers.AlbumSetDefault(deps.Albums, logg))
		})

		r.Route("/band", func(r chi.Router) {
			r.Get("/", controllers.BandGet(deps.Bands, logg))
			r.Post("/", controllers.BandCreate(deps.Bands, logg))
			r.Patch("/", controllers.BandRename(deps.Bands, logg))
			r.Post("/photo", controllers.BandPhoto(deps.Bands, logg))
			r.Route("/members", func(r chi.Router) {
				r.Post("/", controllers.BandAddMember(deps.Bands, logg))
				r.Patch("/{memberId}", controllers.BandUpdateMember(deps.Bands, logg))
				r.Delete("/{memberId}", controllers.BandRemoveMember(deps.Bands, logg))
				r.Post("/{memberId}/portrait", controllers.BandMemberPortrait(deps.Bands, logg))
			})
		})

		r.Route("/billing", func(r chi.Router) {
			r.Post("/checkout", controllers.BillingCheckout(deps.Billing, logg))
			r.Get("/subscription", controllers.BillingSubscription(deps.Billing, logg))
			r.Post("/subscription/cancel", controllers.BillingCancel(deps.Billing, logg))
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", controllers.MediaList(deps.Media, logg))
			r.Post("/presign", controllers.MediaPresign(deps.Media, logg))
			r.Post("/{mediaId}/finalize", controllers.MediaFinalize(deps.Media, logg))
			r.Delete("/{mediaId}", controllers.MediaDelete(deps.Media, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Session, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUserList(deps.Admin, logg))
			r.Post("/{userId}/active", controllers.AdminUserSetActive(deps.Admin, logg))
			r.Post("/{userId}/plan", controllers.AdminUserPlanOverride(deps.Admin, logg))
		})
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", controllers.AdminPlanList(deps.Admin, logg))
			r.Post("/", controllers.AdminPlanCreate(deps.Admin, logg))
			r.Patch("/{planId}", controllers.AdminPlanUpdate(deps.Admin, logg))
		})
		r.Route("/tracks", func(r chi.Router) {
			r.Post("/{trackId}/force-private", controllers.AdminTrackForcePrivate(deps.Admin, logg))
			r.Delete("/{trackId}", controllers.AdminTrackDelete(deps.Admin, logg))
		})
		r.Get("/stats", controllers.AdminStats(deps.Admin, logg))
	})

	return r
}
