package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/bootstrap"
	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Outbox           config.OutboxConfig
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	DLQRepository    dlqRepository
	Metrics          publishRecorder
}

func (p ServiceParams) validate() error {
	missing := map[string]bool{
		"logger":          p.Logger == nil,
		"database client": p.DB == nil,
		"pubsub client":   p.PubSub == nil,
		"outbox repo":     p.Repository == nil,
		"event registry":  p.Registry == nil,
		"dlq repository":  p.DLQRepository == nil,
	}
	var errs []error
	for _, name := range []string{"logger", "database client", "pubsub client", "outbox repo", "event registry", "dlq repository"} {
		if missing[name] {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	return errors.Join(errs...)
}

// Service drains unpublished outbox rows onto their Pub/Sub topics.
type Service struct {
	logg             *logger.Logger
	db               dbClient
	repo             outboxRepository
	pubsub           pubSubClient
	registry         registryResolver
	dlq              dlqRepository
	metrics          publishRecorder
	publisherFactory publisherFactory
	batchSize        int
	maxAttempts      int
	pollInterval     time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	svc := &Service{
		logg:             params.Logger,
		db:               params.DB,
		repo:             params.Repository,
		pubsub:           params.PubSub,
		registry:         params.Registry,
		dlq:              params.DLQRepository,
		metrics:          params.Metrics,
		publisherFactory: params.PublisherFactory,
		batchSize:        positiveOr(params.Outbox.BatchSize, defaultBatchSize),
		maxAttempts:      positiveOr(params.Outbox.MaxAttempts, defaultMaxAttempts),
		pollInterval:     time.Duration(positiveOr(params.Outbox.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}
	if svc.metrics == nil {
		svc.metrics = nopRecorder{}
	}
	if svc.publisherFactory == nil {
		svc.publisherFactory = topicPublishers(params.PubSub)
	}
	return svc, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is cancelled. Consecutive failed batches double the
// wait up to maxBackoff; an idle batch waits one poll interval.
func (s *Service) Run(ctx context.Context) error {
	if err := bootstrap.Ready(ctx, s.logg,
		bootstrap.Check{Name: "database", Ping: s.db.Ping},
		bootstrap.Check{Name: "pubsub", Ping: s.pubsub.Ping},
	); err != nil {
		return err
	}

	wait := s.pollInterval
	for ctx.Err() == nil {
		processed, err := s.processBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case processed:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		if err := pause(ctx, withJitter(wait)); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "outbox publisher context canceled")
	return ctx.Err()
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var count int
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		count = len(rows)
		for _, row := range rows {
			if err := s.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return count > 0, err
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, limit)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}
