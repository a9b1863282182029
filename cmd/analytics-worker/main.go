package main

import (
	"errors"

	"github.com/catchyfabric/market-backend/internal/analytics"
	"github.com/catchyfabric/market-backend/pkg/bigquery"
	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/outbox/idempotency"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
	"github.com/catchyfabric/market-backend/pkg/pubsub"
	"github.com/catchyfabric/market-backend/pkg/redis"
)

func main() {
	p := bootstrap.Start("analytics-worker")
	cfg, logg := p.Config, p.Logger
	ctx, stop := p.SignalContext(map[string]any{"table": cfg.BigQuery.MarketplaceEventsTable})
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	p.Require("redis", err)
	p.OnClose("redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.AnalyticsRequirements(cfg.PubSub), logg)
	p.Require("pubsub", err)
	p.OnClose("pubsub", pubsubClient.Close)

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	p.Require("bigquery client", err)
	p.OnClose("bigquery", bqClient.Close)

	subscription := pubsubClient.AnalyticsSubscription()
	if subscription == nil {
		p.Require("analytics subscription", errors.New("subscription not configured"))
	}

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	p.Require("event registry", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	p.Require("idempotency manager", err)

	writer, err := analytics.NewWriter(bqClient, analytics.WriterConfig{Table: bqClient.EventsTable()})
	p.Require("analytics bigquery writer", err)

	consumer, err := analytics.NewConsumer(writer, eventRegistry, manager, logg)
	p.Require("analytics consumer", err)

	logg.Info(ctx, "analytics worker ready")
	p.Finish(ctx, consumer.Run(ctx, subscription))
}
