package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/internal/billing"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

type testBillingService struct {
	checkoutFn func(ctx context.Context, userID uuid.UUID, req billing.CheckoutRequest) (*billing.CheckoutDTO, error)
	currentFn  func(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error)
	cancelFn   func(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error)
}

func (s *testBillingService) CreateCheckout(ctx context.Context, userID uuid.UUID, req billing.CheckoutRequest) (*billing.CheckoutDTO, error) {
	if s.checkoutFn != nil {
		return s.checkoutFn(ctx, userID, req)
	}
	return &billing.CheckoutDTO{}, nil
}

func (s *testBillingService) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error) {
	if s.currentFn != nil {
		return s.currentFn(ctx, userID)
	}
	return &billing.SubscriptionDTO{}, nil
}

func (s *testBillingService) CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, userID)
	}
	return &billing.SubscriptionDTO{}, nil
}

func TestBillingCheckoutForwardsRequest(t *testing.T) {
	userID := uuid.New()
	planID := uuid.New()
	var got billing.CheckoutRequest
	svc := &testBillingService{
		checkoutFn: func(_ context.Context, uid uuid.UUID, req billing.CheckoutRequest) (*billing.CheckoutDTO, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			got = req
			return &billing.CheckoutDTO{SessionID: "cs_123", URL: "https://checkout.stripe.com/cs_123"}, nil
		},
	}

	body := `{"plan_id":"` + planID.String() + `","interval":"monthly"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUser(req, userID)
	resp := httptest.NewRecorder()
	BillingCheckout(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.PlanID != planID || got.Interval != "monthly" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestBillingCheckoutRejectsBadInterval(t *testing.T) {
	body := `{"plan_id":"` + uuid.NewString() + `","interval":"daily"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	BillingCheckout(&testBillingService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestBillingSubscriptionRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/subscription", nil)
	resp := httptest.NewRecorder()
	BillingSubscription(&testBillingService{}, testControllerLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestBillingCancelMapsNotFound(t *testing.T) {
	svc := &testBillingService{
		cancelFn: func(context.Context, uuid.UUID) (*billing.SubscriptionDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription on file")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/subscription/cancel", nil)
	req = withUser(req, uuid.New())
	resp := httptest.NewRecorder()
	BillingCancel(svc, testControllerLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
