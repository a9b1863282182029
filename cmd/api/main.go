package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/catchyfabric/market-backend/api/controllers"
	"github.com/catchyfabric/market-backend/api/routes"
	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/auth"
	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/payments"
	"github.com/catchyfabric/market-backend/internal/stats"
	"github.com/catchyfabric/market-backend/internal/users"
	"github.com/catchyfabric/market-backend/pkg/auth/session"
	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/metrics"
	"github.com/catchyfabric/market-backend/pkg/migrate"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/redis"
	"github.com/catchyfabric/market-backend/pkg/square"
)

const shutdownTimeout = 15 * time.Second

func main() {
	p := bootstrap.Start("api")
	cfg, logg := p.Config, p.Logger

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := p.SignalContext(map[string]any{
		"addr":    addr,
		"gateway": cfg.Payments.GatewayKind(),
	})
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	p.Require("database", err)
	p.OnClose("database", dbClient.Close)
	p.Require("dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	p.Require("redis", err)
	p.OnClose("redis", redisClient.Close)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	p.Require("session manager", err)

	var squareClient *square.Client
	if cfg.Payments.GatewayKind() == config.PaymentGatewaySquare {
		squareClient, err = square.NewClient(ctx, cfg.Square, logg)
		p.Require("square client", err)
	}
	gateway, err := payments.NewGatewayFromConfig(cfg.Payments, squareClient)
	p.Require("payment gateway", err)

	router, err := newRouter(cfg, logg, dbClient, redisClient, sessionManager, gateway)
	p.Require("api services", err)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	p.Finish(ctx, serve(ctx, logg, server))
}

func newRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	gateway payments.Gateway,
) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gdb := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(gdb), logg)
	auditRepo := auditlog.NewRepository(gdb)
	recorder := auditlog.NewRecorder(auditRepo, logg)
	usersRepo := users.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	notificationsRepo := notifications.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:          usersRepo,
		Notifications:  notificationsRepo,
		Tx:             dbClient,
		Outbox:         emitter,
		SessionManager: sessionManager,
		Audit:          recorder,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	usersService, err := users.NewService(usersRepo, recorder)
	if err != nil {
		return nil, err
	}
	ordersService, err := orders.NewService(ordersRepo, dbClient, emitter, usersRepo, recorder, logg)
	if err != nil {
		return nil, err
	}
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Orders:  ordersRepo,
		Reader:  ordersService,
		Repo:    payments.NewRepository(gdb),
		Tx:      dbClient,
		Outbox:  emitter,
		Gateway: gateway,
		Audit:   recorder,
		Metrics: metrics.NewPaymentMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		return nil, err
	}
	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, err
	}
	auditService, err := auditlog.NewService(auditRepo)
	if err != nil {
		return nil, err
	}
	statsService, err := stats.NewService(stats.NewRepository(gdb), cfg.Payments.Currency)
	if err != nil {
		return nil, err
	}

	router := routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		Sessions:      sessionManager,
		RateLimits:    redisClient,
		Idempotency:   redisClient,
		Readiness:     map[string]controllers.Pinger{"database": dbClient, "redis": redisClient},
		Metrics:       registry,
		Auth:          authService,
		Users:         usersService,
		Orders:        ordersService,
		Payments:      paymentsService,
		Notifications: notificationsService,
		Audit:         auditService,
		Stats:         statsService,
	})
	return router, nil
}

// serve blocks until the server fails or ctx is cancelled, then drains
// in-flight requests.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
