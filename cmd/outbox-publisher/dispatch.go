package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/registry"
)

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// publishRecorder receives one call per row outcome.
type publishRecorder interface {
	IncPublished(eventType string)
	IncFailed(eventType string)
	IncDeadLettered(eventType, reason string)
}

type nopRecorder struct{}

func (nopRecorder) IncPublished(string)            {}
func (nopRecorder) IncFailed(string)               {}
func (nopRecorder) IncDeadLettered(string, string) {}

// verdict is what happens to a row after one publish attempt.
type verdict struct {
	err    error
	reason enums.OutboxDLQErrorReason // set when the row is dead-lettered
}

func (v verdict) published() bool  { return v.err == nil }
func (v verdict) deadLetter() bool { return v.reason != "" }

func (s *Service) judge(row models.OutboxEvent, publishErr error) verdict {
	if publishErr == nil {
		return verdict{}
	}
	var nonRetry registry.NonRetryableError
	if errors.As(publishErr, &nonRetry) {
		return verdict{err: publishErr, reason: enums.OutboxDLQReasonNonRetryable}
	}
	if row.AttemptCount+1 >= s.maxAttempts {
		return verdict{
			err:    fmt.Errorf("max publish attempts reached: %w", publishErr),
			reason: enums.OutboxDLQReasonMaxAttempts,
		}
	}
	return verdict{err: publishErr}
}

// dispatch publishes one row and records the outcome on it. Only bookkeeping
// failures are returned.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	ctx = s.logg.WithFields(ctx, rowFields(row, s.batchSize))

	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return s.deadLetter(ctx, tx, row, verdict{err: err, reason: enums.OutboxDLQReasonNonRetryable})
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"topic":       resolved.Descriptor.Topic,
		"event_id":    resolved.Envelope.EventID,
		"occurred_at": resolved.Envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	v := s.judge(row, s.publish(ctx, row, resolved))
	switch {
	case v.published():
		if err := s.repo.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		s.metrics.IncPublished(string(row.EventType))
		s.logg.Info(ctx, "outbox event published")
	case v.deadLetter():
		return s.deadLetter(ctx, tx, row, v)
	default:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"attempt_count": row.AttemptCount + 1,
			"error":         v.err.Error(),
		}), "outbox publish failed")
		if err := s.repo.MarkFailedTx(tx, row.ID, v.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", row.ID, err)
		}
		s.metrics.IncFailed(string(row.EventType))
	}
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, v verdict) error {
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"error_reason": v.reason,
		"error":        v.err.Error(),
	}), "outbox event will not be retried")

	msg := v.err.Error()
	if err := s.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   v.reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, row.ID, v.err, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	s.metrics.IncDeadLettered(string(row.EventType), string(v.reason))
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFactory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:       row.Payload,
		Attributes: messageAttributes(row, resolved.Envelope),
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

// messageAttributes are read by consumers to pick a payload type before decoding.
func messageAttributes(row models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]string {
	return map[string]string{
		"event_id":       envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
	}
}

func rowFields(row models.OutboxEvent, batchSize int) map[string]any {
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
		"batch_size":     batchSize,
		"attempt_count":  row.AttemptCount,
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}
