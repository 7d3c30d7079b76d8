package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/internal/albums"
	"github.com/soundsmith-ai/soundsmith-backend/internal/auth"
	"github.com/soundsmith-ai/soundsmith-backend/internal/bands"
	"github.com/soundsmith-ai/soundsmith-backend/internal/billing"
	"github.com/soundsmith-ai/soundsmith-backend/internal/comments"
	"github.com/soundsmith-ai/soundsmith-backend/internal/generation"
	"github.com/soundsmith-ai/soundsmith-backend/internal/likes"
	"github.com/soundsmith-ai/soundsmith-backend/internal/media"
	"github.com/soundsmith-ai/soundsmith-backend/internal/notifications"
	"github.com/soundsmith-ai/soundsmith-backend/internal/plans"
	"github.com/soundsmith-ai/soundsmith-backend/internal/tracks"
	"github.com/soundsmith-ai/soundsmith-backend/internal/users"
	pkgauth "github.com/soundsmith-ai/soundsmith-backend/pkg/auth"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/auth/session"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/pagination"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/redis"
)

type stubSessionManager struct{}

func (stubSessionManager) HasSession(context.Context, string) (bool, error) { return true, nil }
func (stubSessionManager) Rotate(context.Context, string, string) (string, string, error) {
	return "", "", nil
}
func (stubSessionManager) Revoke(context.Context, string) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}
func (stubAuthService) AdminLogin(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(context.Context, auth.RegisterRequest) error { return nil }

type stubUsersService struct{}

func (stubUsersService) Profile(context.Context, uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}
func (stubUsersService) UpdateProfile(context.Context, uuid.UUID, users.UpdateProfileRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

type stubTracksService struct{}

func (stubTracksService) List(context.Context, uuid.UUID, pagination.Params, tracks.ListFilters) (*tracks.ListResult, error) {
	return &tracks.ListResult{}, nil
}
func (stubTracksService) Get(context.Context, uuid.UUID, uuid.UUID) (*tracks.TrackDTO, error) {
	return &tracks.TrackDTO{}, nil
}
func (stubTracksService) Update(context.Context, uuid.UUID, uuid.UUID, tracks.UpdateTrackRequest) (*tracks.TrackDTO, error) {
	return &tracks.TrackDTO{}, nil
}
func (stubTracksService) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubTracksService) Gallery(context.Context, pagination.Params) (*tracks.GalleryResult, error) {
	return &tracks.GalleryResult{}, nil
}
func (stubTracksService) PublicGet(context.Context, uuid.UUID) (*tracks.PublicTrackDTO, error) {
	return &tracks.PublicTrackDTO{}, nil
}
func (stubTracksService) InvalidateListCache(context.Context, uuid.UUID) {}

type stubGenerationService struct{}

func (stubGenerationService) StartMusic(context.Context, uuid.UUID, generation.StartMusicRequest) (*tracks.TrackDTO, error) {
	return &tracks.TrackDTO{}, nil
}
func (stubGenerationService) Status(context.Context, uuid.UUID, uuid.UUID) (*generation.StatusDTO, error) {
	return &generation.StatusDTO{}, nil
}

type stubAlbumsService struct{}

func (stubAlbumsService) List(context.Context, uuid.UUID) ([]albums.AlbumDTO, error) { return nil, nil }
func (stubAlbumsService) Create(context.Context, uuid.UUID, albums.CreateAlbumRequest) (*albums.AlbumDTO, error) {
	return &albums.AlbumDTO{}, nil
}
func (stubAlbumsService) Update(context.Context, uuid.UUID, uuid.UUID, albums.UpdateAlbumRequest) (*albums.AlbumDTO, error) {
	return &albums.AlbumDTO{}, nil
}
func (stubAlbumsService) Delete(context.Context, uuid.UUID, uuid.UUID) error     { return nil }
func (stubAlbumsService) SetDefault(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubAlbumsService) PublicByShareToken(context.Context, string) (*albums.PublicAlbumDTO, error) {
	return &albums.PublicAlbumDTO{}, nil
}

type stubBandsService struct{}

func (stubBandsService) Get(context.Context, uuid.UUID) (*bands.BandDTO, error) {
	return &bands.BandDTO{}, nil
}
func (stubBandsService) Create(context.Context, uuid.UUID, bands.CreateBandRequest) (*bands.BandDTO, error) {
	return &bands.BandDTO{}, nil
}
func (stubBandsService) Rename(context.Context, uuid.UUID, bands.RenameBandRequest) (*bands.BandDTO, error) {
	return &bands.BandDTO{}, nil
}
func (stubBandsService) AddMember(context.Context, uuid.UUID, bands.AddMemberRequest) (*bands.MemberDTO, error) {
	return &bands.MemberDTO{}, nil
}
func (stubBandsService) UpdateMember(context.Context, uuid.UUID, uuid.UUID, bands.UpdateMemberRequest) (*bands.MemberDTO, error) {
	return &bands.MemberDTO{}, nil
}
func (stubBandsService) RemoveMember(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubBandsService) GeneratePortrait(context.Context, uuid.UUID, uuid.UUID, bands.GenerateImageRequest) (*bands.MemberDTO, error) {
	return &bands.MemberDTO{}, nil
}
func (stubBandsService) GenerateBandPhoto(context.Context, uuid.UUID, bands.GenerateImageRequest) (*bands.BandDTO, error) {
	return &bands.BandDTO{}, nil
}

type stubLikesService struct{}

func (stubLikesService) Toggle(context.Context, uuid.UUID, uuid.UUID) (*likes.ToggleResult, error) {
	return &likes.ToggleResult{}, nil
}

type stubCommentsService struct{}

func (stubCommentsService) Create(context.Context, uuid.UUID, uuid.UUID, comments.CreateCommentRequest) (*comments.CommentDTO, error) {
	return &comments.CommentDTO{}, nil
}
func (stubCommentsService) List(context.Context, uuid.UUID, pagination.Params) (*comments.ListResult, error) {
	return &comments.ListResult{}, nil
}
func (stubCommentsService) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type stubPlansService struct{}

func (stubPlansService) List(context.Context) ([]plans.PlanDTO, error) {
	return []plans.PlanDTO{}, nil
}
func (stubPlansService) Get(context.Context, uuid.UUID) (*plans.PlanDTO, error) {
	return &plans.PlanDTO{}, nil
}

type stubBillingService struct{}

func (stubBillingService) CreateCheckout(context.Context, uuid.UUID, billing.CheckoutRequest) (*billing.CheckoutDTO, error) {
	return &billing.CheckoutDTO{}, nil
}
func (stubBillingService) CurrentSubscription(context.Context, uuid.UUID) (*billing.SubscriptionDTO, error) {
	return &billing.SubscriptionDTO{}, nil
}
func (stubBillingService) CancelSubscription(context.Context, uuid.UUID) (*billing.SubscriptionDTO, error) {
	return &billing.SubscriptionDTO{}, nil
}

type stubMediaService struct{}

func (stubMediaService) PresignUpload(context.Context, uuid.UUID, media.PresignRequest) (*media.PresignDTO, error) {
	return &media.PresignDTO{}, nil
}
func (stubMediaService) FinalizeUpload(context.Context, uuid.UUID, uuid.UUID) (*media.MediaDTO, error) {
	return &media.MediaDTO{}, nil
}
func (stubMediaService) List(context.Context, uuid.UUID, string) ([]media.MediaDTO, error) {
	return nil, nil
}
func (stubMediaService) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type stubNotificationsService struct{}

func (stubNotificationsService) List(context.Context, uuid.UUID, pagination.Params, bool) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}
func (stubNotificationsService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (stubNotificationsService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{Output: io.Discard})
	return NewRouter(Deps{
		Config:        cfg,
		Logger:        logg,
		Redis:         (*redis.Client)(nil),
		Session:       stubSessionManager{},
		Auth:          stubAuthService{},
		Register:      stubRegisterService{},
		Users:         stubUsersService{},
		Tracks:        stubTracksService{},
		Generation:    stubGenerationService{},
		Albums:        stubAlbumsService{},
		Bands:         stubBandsService{},
		Likes:         stubLikesService{},
		Comments:      stubCommentsService{},
		Plans:         stubPlansService{},
		Billing:       stubBillingService{},
		Media:         stubMediaService{},
		Notifications: stubNotificationsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicGalleryNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/gallery", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tracks/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	member := httptest.NewRequest(http.MethodGet, "/api/admin/v1/plans/", nil)
	member.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, member)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member got %d", resp.Code)
	}
}
