package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catchyfabric/market-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubConsumer struct {
	err   error
	calls int
	subs  int
}

func (s *stubConsumer) Run(ctx context.Context, subscriptions ...*gcppubsub.Subscriber) error {
	s.calls++
	s.subs = len(subscriptions)
	return s.err
}

func newWorker(t *testing.T, dbErr error, consumer *stubConsumer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:        logger.Nop(),
		DB:            stubPinger{err: dbErr},
		Redis:         stubPinger{},
		PubSub:        stubPinger{},
		Consumer:      consumer,
		Subscriptions: []*gcppubsub.Subscriber{{}, {}},
	})
	require.NoError(t, err)
	return svc
}

func TestRunStopsWhenDependencyIsDown(t *testing.T) {
	consumer := &stubConsumer{}
	svc := newWorker(t, errors.New("connection refused"), consumer)

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database ping failed")
	assert.Zero(t, consumer.calls)
}

func TestRunDrainsEverySubscription(t *testing.T) {
	consumer := &stubConsumer{err: errors.New("receive failed")}
	svc := newWorker(t, nil, consumer)

	err := svc.Run(context.Background())
	require.EqualError(t, err, "receive failed")
	assert.Equal(t, 2, consumer.subs)
}

func TestRunReturnsContextErrorOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := newWorker(t, nil, &stubConsumer{})

	assert.ErrorIs(t, svc.Run(ctx), context.Canceled)
}

func TestNewServiceRejectsMissingSubscription(t *testing.T) {
	_, err := NewService(ServiceParams{
		Logger:        logger.Nop(),
		DB:            stubPinger{},
		Redis:         stubPinger{},
		PubSub:        stubPinger{},
		Consumer:      &stubConsumer{},
		Subscriptions: []*gcppubsub.Subscriber{nil},
	})
	assert.Error(t, err)
}
