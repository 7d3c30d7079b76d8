package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/pkg/config"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/enums"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

type userStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
	SetPlan(ctx context.Context, id uuid.UUID, planID *uuid.UUID, status enums.PlanStatus) error
}

type planStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.SubscriptionPlan, error)
}

type subscriptionStore interface {
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *models.Subscription) error
}

// Service drives checkout and subscription management against Stripe.
type Service struct {
	users  userStore
	plans  planStore
	subs   subscriptionStore
	stripe StripeBillingClient
	cfg    config.StripeConfig
	logg   *logger.Logger
}

// ServiceParams collects the billing service dependencies.
type ServiceParams struct {
	Users  userStore
	Plans  planStore
	Subs   subscriptionStore
	Stripe StripeBillingClient
	Config config.StripeConfig
	Logger *logger.Logger
}

// NewService wires the billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user store required")
	}
	if params.Plans == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan store required")
	}
	if params.Subs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "subscription store required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	return &Service{
		users:  params.Users,
		plans:  params.Plans,
		subs:   params.Subs,
		stripe: params.Stripe,
		cfg:    params.Config,
		logg:   params.Logger,
	}, nil
}

// CheckoutRequest selects the plan and billing cadence to purchase.
type CheckoutRequest struct {
	PlanID   uuid.UUID `json:"plan_id" validate:"required"`
	Interval string    `json:"interval" validate:"required,oneof=weekly monthly yearly"`
}

// CheckoutDTO carries the hosted checkout handle back to the client.
type CheckoutDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// SubscriptionDTO is the client-facing view of a subscription.
type SubscriptionDTO struct {
	ID                 uuid.UUID  `json:"id"`
	PlanID             uuid.UUID  `json:"plan_id"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
	CanceledAt         *time.Time `json:"canceled_at,omitempty"`
}

// CreateCheckout opens a Stripe-hosted checkout session for the requested plan.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*CheckoutDTO, error) {
	interval, err := enums.ParseBillingInterval(req.Interval)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid billing interval")
	}

	plan, err := s.plans.FindByID(ctx, req.PlanID)
	if err != nil {
		return nil, planLookupError(err)
	}
	if !plan.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}

	priceID := stripePriceForInterval(plan, interval)
	if priceID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("plan %s has no %s price", plan.Name, interval))
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(user.ID.String()),
		SuccessURL:        stripe.String(s.cfg.SuccessURL),
		CancelURL:         stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": user.ID.String(),
				"plan_id": plan.ID.String(),
			},
		},
	}

	sess, err := s.stripe.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("checkout session %s opened for plan %s", sess.ID, plan.Name))
	}
	return &CheckoutDTO{SessionID: sess.ID, URL: sess.URL}, nil
}

// CurrentSubscription returns the user's most recent subscription.
func (s *Service) CurrentSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription on file")
	}
	return subscriptionDTO(sub), nil
}

// CancelSubscription cancels the user's subscription at Stripe and records the result.
func (s *Service) CancelSubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subs.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription on file")
	}
	if sub.Status == enums.SubscriptionStatusCanceled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription already canceled")
	}

	stripeSub, err := s.stripe.CancelSubscription(ctx, sub.StripeSubscriptionID, &stripe.SubscriptionCancelParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel stripe subscription")
	}

	if err := UpdateSubscriptionFromStripe(sub, stripeSub, nil, nil); err != nil {
		return nil, err
	}
	if err := s.subs.UpdateSubscription(ctx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist subscription")
	}
	if err := s.users.SetPlan(ctx, userID, &sub.PlanID, sub.Status.PlanStatus()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user plan")
	}

	if s.logg != nil {
		s.logg.Info(ctx, fmt.Sprintf("subscription %s canceled", sub.StripeSubscriptionID))
	}
	return subscriptionDTO(sub), nil
}

func (s *Service) ensureCustomer(ctx context.Context, user *models.User) (string, error) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.DisplayName),
	}
	params.Metadata = map[string]string{"user_id": user.ID.String()}

	cust, err := s.stripe.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}
	if err := s.users.SetStripeCustomerID(ctx, user.ID, cust.ID); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store stripe customer id")
	}
	return cust.ID, nil
}

func stripePriceForInterval(plan *models.SubscriptionPlan, interval enums.BillingInterval) string {
	var price *string
	switch interval {
	case enums.BillingIntervalWeekly:
		price = plan.StripePriceWeeklyID
	case enums.BillingIntervalMonthly:
		price = plan.StripePriceMonthlyID
	case enums.BillingIntervalYearly:
		price = plan.StripePriceYearlyID
	}
	if price == nil {
		return ""
	}
	return *price
}

func subscriptionDTO(sub *models.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		ID:                 sub.ID,
		PlanID:             sub.PlanID,
		Status:             sub.Status.String(),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
	}
}

func planLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
}
