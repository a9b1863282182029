package main

import (
	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/catchyfabric/market-backend/internal/notifications"
	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/migrate"
	"github.com/catchyfabric/market-backend/pkg/outbox/idempotency"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
	"github.com/catchyfabric/market-backend/pkg/pubsub"
	"github.com/catchyfabric/market-backend/pkg/redis"
)

func main() {
	p := bootstrap.Start("worker")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.NotificationRequirements(cfg.PubSub), logg)
	p.Require("pubsub", err)
	p.OnClose("pubsub", pubsubClient.Close)

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	p.Require("event registry", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	p.Require("idempotency manager", err)

	consumer, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), dbClient, eventRegistry, manager, logg)
	p.Require("notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
		Subscriptions: []*gcppubsub.Subscriber{
			pubsubClient.NotificationSubscription(),
			pubsubClient.UserEventsSubscription(),
		},
	})
	p.Require("worker service", err)

	logg.Info(ctx, "starting worker")
	p.Finish(ctx, service.Run(ctx))
}
