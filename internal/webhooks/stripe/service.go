package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/soundsmith-ai/soundsmith-backend/internal/billing"
	"github.com/soundsmith-ai/soundsmith-backend/internal/plans"
	"github.com/soundsmith-ai/soundsmith-backend/internal/users"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/db/models"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stripeFetcher interface {
	GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
}

// ServiceParams collects the webhook processor dependencies.
type ServiceParams struct {
	Stripe            stripeFetcher
	TransactionRunner txRunner
}

// Service applies Stripe subscription lifecycle events to local state.
type Service struct {
	stripe   stripeFetcher
	txRunner txRunner
}

// NewService wires the Stripe webhook processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		stripe:   params.Stripe,
		txRunner: params.TransactionRunner,
	}, nil
}

// HandleEvent routes a verified Stripe event to the matching sync path.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.syncSubscription(ctx, &stripeSub)
	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		subscriptionID := event.GetObjectValue("subscription")
		if subscriptionID == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "subscription id missing")
		}
		stripeSub, err := s.stripe.GetSubscription(ctx, subscriptionID, &stripe.SubscriptionParams{})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
		}
		return s.syncSubscription(ctx, stripeSub)
	default:
		return nil
	}
}

func (s *Service) syncSubscription(ctx context.Context, stripeSub *stripe.Subscription) error {
	if stripeSub == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := billing.NewRepository(tx)
		stored, err := repo.FindByStripeID(ctx, stripeSub.ID)
		if err != nil {
			return err
		}

		userID, metadataErr := billing.UserIDFromMetadata(stripeSub.Metadata)
		if metadataErr != nil && stored != nil {
			userID = stored.UserID
			metadataErr = nil
		}
		if metadataErr != nil {
			return metadataErr
		}

		priceID := determinePriceID(stripeSub)
		planID, err := s.resolvePlan(ctx, tx, stripeSub, stored, priceID)
		if err != nil {
			return err
		}

		var synced *models.Subscription
		if stored == nil {
			built, buildErr := billing.BuildSubscriptionFromStripe(stripeSub, userID, planID, priceID)
			if buildErr != nil {
				return buildErr
			}
			if err := repo.CreateSubscription(ctx, built); err != nil {
				return err
			}
			synced = built
		} else {
			var pricePtr *string
			if priceID != "" {
				pricePtr = &priceID
			}
			if err := billing.UpdateSubscriptionFromStripe(stored, stripeSub, &planID, pricePtr); err != nil {
				return err
			}
			if err := repo.UpdateSubscription(ctx, stored); err != nil {
				return err
			}
			synced = stored
		}

		userRepo := users.NewRepository(tx)
		if _, err := userRepo.FindByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		if err := userRepo.SetPlan(ctx, userID, &synced.PlanID, synced.Status.PlanStatus()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user plan")
		}
		return nil
	})
}

func (s *Service) resolvePlan(ctx context.Context, tx *gorm.DB, stripeSub *stripe.Subscription, stored *models.Subscription, priceID string) (uuid.UUID, error) {
	if planID, ok := billing.PlanIDFromMetadata(stripeSub.Metadata); ok {
		return planID, nil
	}
	if priceID != "" {
		plan, err := plans.NewRepository(tx).FindByStripePriceID(ctx, priceID)
		if err == nil {
			return plan.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve plan by price")
		}
	}
	if stored != nil {
		return stored.PlanID, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "plan could not be resolved for subscription")
}

func determinePriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return ""
	}
	if sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}
