package main

import (
	"context"
	"errors"
	"slices"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

type notificationConsumer interface {
	Run(ctx context.Context, subscriptions ...*gcppubsub.Subscriber) error
}

type ServiceParams struct {
	Logger        *logger.Logger
	DB            pinger
	Redis         pinger
	PubSub        pinger
	Consumer      notificationConsumer
	Subscriptions []*gcppubsub.Subscriber
}

// Service turns order and user events into in-app notifications.
type Service struct {
	logg          *logger.Logger
	checks        []bootstrap.Check
	consumer      notificationConsumer
	subscriptions []*gcppubsub.Subscriber
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil, params.Redis == nil, params.PubSub == nil:
		return nil, errors.New("database, redis and pubsub clients are required")
	case params.Consumer == nil:
		return nil, errors.New("notification consumer is required")
	case len(params.Subscriptions) == 0:
		return nil, errors.New("at least one subscription is required")
	case slices.Contains(params.Subscriptions, nil):
		return nil, errors.New("subscription not configured")
	}

	return &Service{
		logg: params.Logger,
		checks: []bootstrap.Check{
			{Name: "database", Ping: params.DB.Ping},
			{Name: "redis", Ping: params.Redis.Ping},
			{Name: "pubsub", Ping: params.PubSub.Ping},
		},
		consumer:      params.Consumer,
		subscriptions: params.Subscriptions,
	}, nil
}

// Run blocks until ctx is cancelled or a subscription stops receiving.
func (s *Service) Run(ctx context.Context) error {
	if err := bootstrap.Ready(ctx, s.logg, s.checks...); err != nil {
		return err
	}
	s.logg.Info(ctx, "all worker dependencies are ready")

	err := s.consumer.Run(ctx, s.subscriptions...)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
	}
	return err
}
