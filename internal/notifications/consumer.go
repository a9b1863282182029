package notifications

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/outbox/idempotency"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
)

const consumerName = "notifications"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventResolver interface {
	ResolveMessage(eventType string, body []byte) (*registry.ResolvedEvent, error)
}

// Consumer turns order and user events into in-app notifications.
type Consumer struct {
	repo        Repository
	tx          txRunner
	registry    eventResolver
	idempotency *idempotency.Manager
	logg        *logger.Logger
}

// NewConsumer builds the notification consumer.
func NewConsumer(repo Repository, tx txRunner, resolver eventResolver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:        repo,
		tx:          tx,
		registry:    resolver,
		idempotency: manager,
		logg:        logg,
	}, nil
}

// Run drains every subscription until ctx is canceled or one receive fails.
func (c *Consumer) Run(ctx context.Context, subscriptions ...*pubsub.Subscriber) error {
	if len(subscriptions) == 0 {
		return fmt.Errorf("at least one subscription required")
	}
	group, groupCtx := errgroup.WithContext(ctx)
	for _, sub := range subscriptions {
		if sub == nil {
			return fmt.Errorf("subscription not configured")
		}
		group.Go(func() error {
			return sub.Receive(groupCtx, func(ctx context.Context, msg *pubsub.Message) {
				if c.Handle(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
					msg.Ack()
					return
				}
				msg.Nack()
			})
		})
	}
	return group.Wait()
}

// Handle processes one delivered event and reports whether it should be acked.
func (c *Consumer) Handle(ctx context.Context, messageID, eventType string, body []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	resolved, err := c.registry.ResolveMessage(eventType, body)
	if err != nil {
		var nonRetryable registry.NonRetryableError
		if errors.As(err, &nonRetryable) {
			c.logg.Warn(logCtx, "dropping undecodable event")
			return true
		}
		c.logg.Error(logCtx, "failed to resolve event", err)
		return false
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	notes := ForEvent(resolved.Payload)
	if len(notes) == 0 {
		c.logg.Debug(logCtx, "event produces no notifications")
		return true
	}

	skipped, err := c.idempotency.Run(ctx, consumerName, eventID, func(ctx context.Context) error {
		return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return c.repo.WithTx(tx).CreateBatch(ctx, notes)
		})
	})
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		return false
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
		return true
	}
	c.logg.Info(c.logg.WithField(logCtx, "notification_count", len(notes)), "notifications created")
	return true
}
