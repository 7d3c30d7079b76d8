package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

type fakeUserStore struct {
	users       map[uuid.UUID]*models.User
	customerIDs map[uuid.UUID]string
	planCalls   []enums.PlanStatus
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:       map[uuid.UUID]*models.User{},
		customerIDs: map[uuid.UUID]string{},
	}
}

func (f *fakeUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	f.customerIDs[id] = customerID
	if u, ok := f.users[id]; ok {
		u.StripeCustomerID = &customerID
	}
	return nil
}

func (f *fakeUserStore) SetPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID, status enums.PlanStatus) error {
	f.planCalls = append(f.planCalls, status)
	if u, ok := f.users[id]; ok {
		u.PlanID = planID
		u.PlanStatus = status
	}
	return nil
}

type fakePlanStore struct {
	plans map[uuid.UUID]*models.SubscriptionPlan
}

func (f *fakePlanStore) FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error) {
	if p, ok := f.plans[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeSubStore struct {
	latest  *models.Subscription
	updated []*models.Subscription
}

func (f *fakeSubStore) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	return f.latest, nil
}

func (f *fakeSubStore) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	f.updated = append(f.updated, sub)
	return nil
}

type fakeStripeClient struct {
	customers       int
	sessions        []*stripe.CheckoutSessionParams
	cancelResp      *stripe.Subscription
	cancelledIDs    []string
	sessionResponse *stripe.CheckoutSession
}

func (f *fakeStripeClient) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	f.customers++
	return &stripe.Customer{ID: "cus_test"}, nil
}

func (f *fakeStripeClient) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.sessions = append(f.sessions, params)
	if f.sessionResponse != nil {
		return f.sessionResponse, nil
	}
	return &stripe.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/cs_test"}, nil
}

func (f *fakeStripeClient) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return nil, nil
}

func (f *fakeStripeClient) CancelSubscription(ctx context.Context, id string, params *stripe.SubscriptionCancelParams) (*stripe.Subscription, error) {
	f.cancelledIDs = append(f.cancelledIDs, id)
	return f.cancelResp, nil
}

type billingFixture struct {
	users  *fakeUserStore
	plans  *fakePlanStore
	subs   *fakeSubStore
	stripe *fakeStripeClient
	svc    *Service
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	f := &billingFixture{
		users:  newFakeUserStore(),
		plans:  &fakePlanStore{plans: map[uuid.UUID]*models.SubscriptionPlan{}},
		subs:   &fakeSubStore{},
		stripe: &fakeStripeClient{},
	}
	svc, err := NewService(ServiceParams{
		Users:  f.users,
		Plans:  f.plans,
		Subs:   f.subs,
		Stripe: f.stripe,
		Config: config.StripeConfig{
			SuccessURL: "https://app.example.com/billing/success",
			CancelURL:  "https://app.example.com/billing/cancel",
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *billingFixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		ID:          uuid.New(),
		Email:       "fan@example.com",
		DisplayName: "Fan",
		PlanStatus:  enums.PlanStatusFree,
	}
	f.users.users[user.ID] = user
	return user
}

func (f *billingFixture) seedPlan(t *testing.T, monthly, weekly string) *models.SubscriptionPlan {
	t.Helper()
	plan := &models.SubscriptionPlan{
		ID:       uuid.New(),
		Name:     "Pro",
		IsActive: true,
	}
	if monthly != "" {
		plan.StripePriceMonthlyID = &monthly
	}
	if weekly != "" {
		plan.StripePriceWeeklyID = &weekly
	}
	f.plans.plans[plan.ID] = plan
	return plan
}

func TestCreateCheckoutOpensSession(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	plan := f.seedPlan(t, "price_month", "")

	dto, err := f.svc.CreateCheckout(context.Background(), user.ID, CheckoutRequest{
		PlanID:   plan.ID,
		Interval: "monthly",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test", dto.SessionID)
	assert.NotEmpty(t, dto.URL)

	assert.Equal(t, 1, f.stripe.customers, "a customer is created on first checkout")
	assert.Equal(t, "cus_test", f.users.customerIDs[user.ID])

	require.Len(t, f.stripe.sessions, 1)
	params := f.stripe.sessions[0]
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_month", *params.LineItems[0].Price)
	assert.Equal(t, "cus_test", *params.Customer)
	assert.Equal(t, "https://app.example.com/billing/success", *params.SuccessURL)
	require.NotNil(t, params.SubscriptionData)
	assert.Equal(t, user.ID.String(), params.SubscriptionData.Metadata["user_id"])
	assert.Equal(t, plan.ID.String(), params.SubscriptionData.Metadata["plan_id"])
}

func TestCreateCheckoutReusesExistingCustomer(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	existing := "cus_existing"
	f.users.users[user.ID].StripeCustomerID = &existing
	plan := f.seedPlan(t, "price_month", "")

	_, err := f.svc.CreateCheckout(context.Background(), user.ID, CheckoutRequest{
		PlanID:   plan.ID,
		Interval: "monthly",
	})
	require.NoError(t, err)
	assert.Zero(t, f.stripe.customers)
	assert.Equal(t, "cus_existing", *f.stripe.sessions[0].Customer)
}

func TestCreateCheckoutRejectsMissingIntervalPrice(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	plan := f.seedPlan(t, "price_month", "")

	_, err := f.svc.CreateCheckout(context.Background(), user.ID, CheckoutRequest{
		PlanID:   plan.ID,
		Interval: "weekly",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, f.stripe.sessions)
}

func TestCreateCheckoutHidesInactivePlan(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	plan := f.seedPlan(t, "price_month", "")
	plan.IsActive = false

	_, err := f.svc.CreateCheckout(context.Background(), user.ID, CheckoutRequest{
		PlanID:   plan.ID,
		Interval: "monthly",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelSubscriptionSyncsLocalState(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	planID := uuid.New()
	f.subs.latest = &models.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		PlanID:               planID,
		StripeSubscriptionID: "sub_live",
		Status:               enums.SubscriptionStatusActive,
	}
	f.stripe.cancelResp = &stripe.Subscription{
		ID:         "sub_live",
		Status:     stripe.SubscriptionStatusCanceled,
		CanceledAt: time.Now().Unix(),
	}

	dto, err := f.svc.CancelSubscription(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCanceled.String(), dto.Status)
	assert.NotNil(t, dto.CanceledAt)

	assert.Equal(t, []string{"sub_live"}, f.stripe.cancelledIDs)
	require.Len(t, f.subs.updated, 1)
	assert.Equal(t, enums.SubscriptionStatusCanceled, f.subs.updated[0].Status)
	require.Len(t, f.users.planCalls, 1)
	assert.Equal(t, enums.PlanStatusCancelled, f.users.planCalls[0])
}

func TestCancelSubscriptionWithoutOne(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)

	_, err := f.svc.CancelSubscription(context.Background(), user.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCancelSubscriptionAlreadyCanceled(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)
	f.subs.latest = &models.Subscription{
		ID:                   uuid.New(),
		UserID:               user.ID,
		StripeSubscriptionID: "sub_done",
		Status:               enums.SubscriptionStatusCanceled,
	}

	_, err := f.svc.CancelSubscription(context.Background(), user.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	assert.Empty(t, f.stripe.cancelledIDs)
}

func TestCurrentSubscriptionNotFound(t *testing.T) {
	f := newBillingFixture(t)
	user := f.seedUser(t)

	_, err := f.svc.CurrentSubscription(context.Background(), user.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
