package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/api/middleware"
	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/api/validators"
	"github.com/catchyfabric/market-backend/internal/auth"
	"github.com/catchyfabric/market-backend/internal/stats"
	pkgAuth "github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

type userLogReader interface {
	ListForUser(ctx context.Context, actor pkgAuth.Actor, userID uuid.UUID, params pagination.Params) (pagination.Page[models.AuditLog], error)
}

type systemStatsReader interface {
	GetSystemStats(ctx context.Context, actor pkgAuth.Actor) (*stats.SystemStats, error)
}

// AdminCreateUser provisions an account with an explicit role.
func AdminCreateUser(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.AdminCreateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.CreateUserAsAdmin(r.Context(), middleware.ActorFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminDeactivateUser(svc accountDeactivator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		userID, err := validators.ParseUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), middleware.ActorFromContext(r.Context()), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user_id": userID.String(), "is_active": false})
	}
}

// AdminUserLogs pages through a user's audit trail, newest first.
func AdminUserLogs(svc userLogReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit log service unavailable"))
			return
		}

		userID, err := validators.ParseUUID(chi.URLParam(r, "userId"), "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		page, err := svc.ListForUser(r.Context(), middleware.ActorFromContext(r.Context()), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func AdminSystemStats(svc systemStatsReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats service unavailable"))
			return
		}

		result, err := svc.GetSystemStats(r.Context(), middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
