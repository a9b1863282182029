package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catchyfabric/market-backend/api/controllers"
	ordercontrollers "github.com/catchyfabric/market-backend/api/controllers/orders"
	"github.com/catchyfabric/market-backend/api/middleware"
	"github.com/catchyfabric/market-backend/api/responses"
	"github.com/catchyfabric/market-backend/api/rpc"
	"github.com/catchyfabric/market-backend/internal/auth"
	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/payments"
	"github.com/catchyfabric/market-backend/internal/stats"
	"github.com/catchyfabric/market-backend/internal/users"
	pkgAuth "github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/auth/session"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/pagination"
	pkgredis "github.com/catchyfabric/market-backend/pkg/redis"
)

type rateLimitStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type usersService interface {
	GetProfile(ctx context.Context, actor pkgAuth.Actor) (*users.UserDTO, error)
	UpdateProfile(ctx context.Context, actor pkgAuth.Actor, input users.UpdateProfileInput) (*users.UserDTO, error)
	Deactivate(ctx context.Context, actor pkgAuth.Actor, userID uuid.UUID) error
}

type paymentsService interface {
	Apply(ctx context.Context, input payments.ApplyInput) (*payments.ApplyResult, error)
	ListForOrder(ctx context.Context, actor pkgAuth.Actor, orderID uuid.UUID) ([]models.PaymentTransaction, error)
}

type auditService interface {
	ListForUser(ctx context.Context, actor pkgAuth.Actor, userID uuid.UUID, params pagination.Params) (pagination.Page[models.AuditLog], error)
}

type statsService interface {
	GetSystemStats(ctx context.Context, actor pkgAuth.Actor) (*stats.SystemStats, error)
}

// Dependencies are the stores and services the API surface is built from.
// Nil interfaces disable the matching middleware or answer 500 from the handler.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Sessions      session.AccessSessionChecker
	RateLimits    rateLimitStore
	Idempotency   pkgredis.IdempotencyStore
	Readiness     map[string]controllers.Pinger
	Metrics       prometheus.Gatherer
	Auth          auth.Service
	Users         usersService
	Orders        orders.Service
	Payments      paymentsService
	Notifications notifications.Service
	Audit         auditService
	Stats         statsService
}

func NewRouter(d Dependencies) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found").
			WithDetails(map[string]any{"method": req.Method}))
	})

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Get("/health", controllers.HealthLive(cfg))
	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, d.Readiness))
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, d.RateLimits, logg),
			middleware.Idempotency(d.Idempotency, logg),
		).Post("/register", controllers.AuthRegister(d.Auth, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.RateLimits, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Post("/logout", controllers.AuthLogout(d.Auth, logg))
			r.Put("/password", controllers.AuthChangePassword(d.Auth, logg))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Get("/users/me", controllers.MeProfile(d.Users, logg))
		r.Put("/users/me", controllers.MeUpdateProfile(d.Users, logg))

		buyer := middleware.RequireRole(logg, enums.RoleBuyer)
		sellerOrAdmin := middleware.RequireRole(logg, enums.RoleSeller, enums.RoleAdmin)
		shippingOrAdmin := middleware.RequireRole(logg, enums.RoleShipping, enums.RoleAdmin)
		payer := middleware.RequireRole(logg, enums.RoleBuyer, enums.RoleAdmin)
		admin := middleware.RequireRole(logg, enums.RoleAdmin)

		r.With(buyer).Post("/orders", ordercontrollers.Place(d.Orders, logg))
		r.Get("/orders", ordercontrollers.List(d.Orders, logg))
		r.Get("/orders/{orderId}", ordercontrollers.Detail(d.Orders, logg))
		r.Get("/orders/{orderId}/payments", ordercontrollers.Payments(d.Payments, logg))
		r.With(sellerOrAdmin).Put("/orders/{orderId}/status", ordercontrollers.UpdateStatus(d.Orders, logg))
		r.With(shippingOrAdmin).Put("/orders/{orderId}/delivery-status", ordercontrollers.UpdateDeliveryStatus(d.Orders, logg))
		r.With(sellerOrAdmin).Put("/orders/{orderId}/shipping-company", ordercontrollers.AssignShipping(d.Orders, logg))
		r.With(payer).Post("/payments", ordercontrollers.Pay(d.Payments, logg))

		r.Get("/notifications", controllers.ListNotifications(d.Notifications, logg))
		r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))
		r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
		r.Delete("/notifications/{notificationId}", controllers.DeleteNotification(d.Notifications, logg))

		r.With(admin).Post("/admin/users", controllers.AdminCreateUser(d.Auth, logg))
		r.With(admin).Put("/admin/users/{userId}/deactivate", controllers.AdminDeactivateUser(d.Users, logg))
		r.With(admin).Get("/admin/users/{userId}/logs", controllers.AdminUserLogs(d.Audit, logg))
		r.With(admin).Get("/admin/stats", controllers.AdminSystemStats(d.Stats, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.CallableErrors)
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Post("/rpc/{name}", rpc.NewHandler(rpc.Services{
			Orders:   d.Orders,
			Payments: d.Payments,
			Users:    d.Auth,
			Audit:    d.Audit,
			Stats:    d.Stats,
		}, logg).ServeHTTP)
	})

	return r
}
