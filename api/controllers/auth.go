package controllers

import (
	"net/http"

	"github.com/soundsmith-ai/soundsmith-backend/api/responses"
	"github.com/soundsmith-ai/soundsmith-backend/api/validators"
	"github.com/soundsmith-ai/soundsmith-backend/internal/auth"
	pkgerrors "github.com/soundsmith-ai/soundsmith-backend/pkg/errors"
	"github.com/soundsmith-ai/soundsmith-backend/pkg/logger"
)

// AuthLogin wires the login endpoint into the HTTP layer.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-SS-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AdminAuthLogin is the login endpoint for the admin panel.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminLogin(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("X-SS-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
