package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string, avatarURL *string) error {
	if u, ok := f.users[id]; ok {
		u.DisplayName = displayName
		u.AvatarURL = avatarURL
		return nil
	}
	return gorm.ErrRecordNotFound
}

func TestProfileDerivesFreePlan(t *testing.T) {
	repo := newFakeUserRepo()
	id := uuid.New()
	repo.users[id] = &models.User{ID: id, Email: "a@b.co", PlanStatus: enums.PlanStatusFree}

	svc, err := NewService(repo)
	require.NoError(t, err)

	dto, err := svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, dto.IsFreePlan)

	repo.users[id].PlanStatus = enums.PlanStatusActive
	dto, err = svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, dto.IsFreePlan)

	repo.users[id].PlanStatus = enums.PlanStatusCancelled
	dto, err = svc.Profile(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, dto.IsFreePlan, "cancelled subscribers fall back to free behavior")
}

func TestProfileNotFound(t *testing.T) {
	svc, err := NewService(newFakeUserRepo())
	require.NoError(t, err)

	_, err = svc.Profile(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateProfileTrimsName(t *testing.T) {
	repo := newFakeUserRepo()
	id := uuid.New()
	repo.users[id] = &models.User{ID: id, DisplayName: "old"}

	svc, err := NewService(repo)
	require.NoError(t, err)

	dto, err := svc.UpdateProfile(context.Background(), id, UpdateProfileRequest{DisplayName: "  New Name  "})
	require.NoError(t, err)
	assert.Equal(t, "New Name", dto.DisplayName)
}

func TestUpdateProfileRejectsEmptyName(t *testing.T) {
	repo := newFakeUserRepo()
	id := uuid.New()
	repo.users[id] = &models.User{ID: id}

	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), id, UpdateProfileRequest{DisplayName: "   "})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}
