package middleware

import (
	"net/http"
	"slices"

	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

// RequireRole admits only actors holding one of roles. It must run after Auth.
func RequireRole(logg *logger.Logger, roles ...enums.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := ActorFromContext(r.Context())
			if actor.IsZero() {
				writeError(r, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, actor.Role) {
				writeError(r, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted").
					WithDetails(map[string]any{"role": actor.Role}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
