package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/api/middleware"
	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/api/validators"
	"github.com/catchyfabric/market-backend/internal/users"
	"github.com/catchyfabric/market-backend/pkg/auth"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

type profileService interface {
	GetProfile(ctx context.Context, actor auth.Actor) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, actor auth.Actor, input users.UpdateProfileInput) (*users.UserDTO, error)
}

type accountDeactivator interface {
	Deactivate(ctx context.Context, actor auth.Actor, userID uuid.UUID) error
}

// MeProfile returns the caller's own profile.
func MeProfile(svc profileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		profile, err := svc.GetProfile(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// MeUpdateProfile applies the self-editable profile fields.
func MeUpdateProfile(svc profileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		var body users.UpdateProfileInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpdateProfile(r.Context(), middleware.ActorFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
