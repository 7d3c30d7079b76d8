package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/soundsmith-ai/soundsmith-backend/api/responses"
	"github.com/soundsmith-ai/soundsmith-backend/api/validators"
	"github.com/soundsmith-ai/soundsmith-backend/internal/billing"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

// BillingService is the subscription surface used by the billing endpoints.
type BillingService interface {
	CreateCheckout(ctx context.Context, userID uuid.UUID, req billing.CheckoutRequest) (*billing.CheckoutDTO, error)
	CurrentSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error)
	CancelSubscription(ctx context.Context, userID uuid.UUID) (*billing.SubscriptionDTO, error)
}

// BillingCheckout opens a Stripe Checkout session for a plan.
func BillingCheckout(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body billing.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.CreateCheckout(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checkout)
	}
}

// BillingSubscription returns the caller's latest subscription.
func BillingSubscription(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.CurrentSubscription(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}

// BillingCancel cancels the caller's subscription immediately.
func BillingCancel(svc BillingService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		userID, err := currentUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sub, err := svc.CancelSubscription(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sub)
	}
}
