package middleware

import (
	"context"
	"net/http"

	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

type contextKey string

const (
	ctxActor    contextKey = "actor"
	ctxAccessID contextKey = "access_id"
	ctxCallable contextKey = "callable"
)

// WithActor stores the authenticated actor on ctx.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// ActorFromContext returns the authenticated actor, or the zero actor.
func ActorFromContext(ctx context.Context) auth.Actor {
	if ctx == nil {
		return auth.Actor{}
	}
	actor, _ := ctx.Value(ctxActor).(auth.Actor)
	return actor
}

func UserIDFromContext(ctx context.Context) string {
	actor := ActorFromContext(ctx)
	if actor.IsZero() {
		return ""
	}
	return actor.ID.String()
}

func RoleFromContext(ctx context.Context) string {
	return string(ActorFromContext(ctx).Role)
}

// AccessIDFromContext returns the jti of the bearer token.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ctxAccessID).(string)
	return v
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccessID, accessID)
}

// CallableErrors makes the middleware below it answer in the RPC error
// envelope instead of the REST one.
func CallableErrors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ctxCallable, true)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeError(r *http.Request, logg *logger.Logger, w http.ResponseWriter, err error) {
	ctx := r.Context()
	if callable, _ := ctx.Value(ctxCallable).(bool); callable {
		responses.WriteRPCError(ctx, logg, w, err)
		return
	}
	responses.WriteError(ctx, logg, w, err)
}
