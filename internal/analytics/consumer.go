package analytics

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/outbox/idempotency"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
)

const consumerName = "analytics"

type eventResolver interface {
	ResolveMessage(eventType string, body []byte) (*registry.ResolvedEvent, error)
}

type rowWriter interface {
	Insert(ctx context.Context, row MarketplaceEventRow) error
	Flush(ctx context.Context) error
}

// Consumer writes order events to the marketplace_events table.
type Consumer struct {
	writer      rowWriter
	registry    eventResolver
	idempotency *idempotency.Manager
	logg        *logger.Logger
}

// NewConsumer builds the analytics consumer.
func NewConsumer(writer rowWriter, resolver eventResolver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if writer == nil {
		return nil, fmt.Errorf("analytics writer required")
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
		writer:      writer,
		registry:    resolver,
		idempotency: manager,
		logg:        logg,
	}, nil
}

// Run consumes the analytics subscription until ctx is canceled. Buffered rows
// are flushed on the way out.
func (c *Consumer) Run(ctx context.Context, subscription *pubsub.Subscriber) error {
	if subscription == nil {
		return errors.New("analytics subscription is required")
	}
	err := subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.Handle(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
	flushCtx := context.WithoutCancel(ctx)
	if flushErr := c.writer.Flush(flushCtx); flushErr != nil {
		c.logg.Error(flushCtx, "final analytics flush failed", flushErr)
	}
	return err
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
			c.logg.Warn(logCtx, "invalid analytics envelope")
			return true
		}
		c.logg.Error(logCtx, "failed to resolve event", err)
		return false
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	row, ok, err := BuildRow(resolved)
	if err != nil {
		c.logg.Error(logCtx, "failed to build marketplace row", err)
		return true
	}
	if !ok {
		c.logg.Debug(logCtx, "event not handled by analytics consumer")
		return true
	}

	skipped, err := c.idempotency.Run(ctx, consumerName, eventID, func(ctx context.Context) error {
		return c.writer.Insert(ctx, *row)
	})
	if err != nil {
		c.logg.Error(logCtx, "failed to insert marketplace row", err)
		return false
	}
	if skipped {
		c.logg.Info(logCtx, "event already processed")
		return true
	}
	c.logg.Info(logCtx, "marketplace event ingested")
	return true
}
