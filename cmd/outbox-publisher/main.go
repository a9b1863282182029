package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/metrics"
	"github.com/catchyfabric/market-backend/pkg/migrate"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
	"github.com/catchyfabric/market-backend/pkg/pubsub"
)

func main() {
	p := bootstrap.Start("outbox-publisher")
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.SignalContext(nil)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	p.Require("database", err)
	p.OnClose("database", dbClient.Close)
	p.Require("dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	p.Require("event registry", err)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.Requirements{Topics: eventRegistry.Topics()}, logg)
	p.Require("pubsub", err)
	p.OnClose("pubsub", pubsubClient.Close)

	service, err := NewService(ServiceParams{
		Outbox:        cfg.Outbox,
		Logger:        logg,
		DB:            dbClient,
		PubSub:        pubsubClient,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	p.Require("outbox publisher", err)

	logg.Info(ctx, "starting outbox publisher")
	p.Finish(ctx, service.Run(ctx))
}
