package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/cron"
	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/users"
	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/metrics"
	"github.com/catchyfabric/market-backend/pkg/migrate"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	p := bootstrap.Start(serviceKind)
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.SignalContext(nil)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	p.Require("database", err)
	p.OnClose("database", dbClient.Close)
	p.Require("dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	p.Require("redis", err)
	p.OnClose("redis", redisClient.Close)

	registry, err := buildRegistry(cfg, logg, dbClient)
	p.Require("cron jobs", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind), cfg.Cron.LockTTL)
	p.Require("cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	p.Require("cron service", err)

	p.Finish(ctx, service.Run(ctx))
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gdb := dbClient.DB()
	outboxRepo := outbox.NewRepository(gdb)
	ordersService, err := orders.NewService(
		orders.NewRepository(gdb),
		dbClient,
		outbox.NewService(outboxRepo, logg),
		users.NewRepository(gdb),
		auditlog.NewRecorder(auditlog.NewRepository(gdb), logg),
		logg,
	)
	if err != nil {
		return nil, err
	}

	fulfillment, err := cron.NewFulfillmentJob(cron.FulfillmentJobParams{
		Logger:    logg,
		Orders:    ordersService,
		Delay:     cfg.Payments.FulfillmentDelay,
		BatchSize: cfg.Cron.FulfillmentBatchSize,
	})
	if err != nil {
		return nil, err
	}
	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notifications.NewRepository(gdb),
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(fulfillment, cleanup, retention)
}
