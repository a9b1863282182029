package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers adapts the Pub/Sub client's per-topic publishers.
func topicPublishers(client pubSubClient) publisherFactory {
	return func(topic string) publisher {
		p := client.Publisher(topic)
		if p == nil {
			return nil
		}
		return topicPublisher{p}
	}
}

type topicPublisher struct{ p *gcppubsub.Publisher }

func (t topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return pendingPublish{t.p.Publish(ctx, msg)}
}

type pendingPublish struct{ r *gcppubsub.PublishResult }

func (p pendingPublish) Get(ctx context.Context) (string, error) {
	if p.r == nil {
		return "", errors.New("publish result is nil")
	}
	return p.r.Get(ctx)
}
