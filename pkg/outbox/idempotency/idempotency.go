// Package idempotency lets event consumers process each outbox event at most
// once even though Pub/Sub delivers at least once.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the part of the redis client the manager writes markers through.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

var (
	errNoConsumer = errors.New("consumer name is required")
	errNoEventID  = errors.New("event id is required")
)

// Manager records processed markers as
// cf:idempotency:evt:processed:<consumer>:<event_id>, expiring after ttl.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim sets the marker for (consumer, eventID). It reports false when another
// delivery already holds it.
func (m *Manager) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.marker(consumer, eventID)
	if err != nil {
		return false, err
	}
	return m.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Forget drops the marker so a redelivery can process the event again.
func (m *Manager) Forget(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.marker(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Run calls fn unless the event was already claimed. A failing fn forgets the
// claim and returns its error so the message gets nacked.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) (skipped bool, err error) {
	claimed, err := m.Claim(ctx, consumer, eventID)
	if err != nil {
		return false, fmt.Errorf("idempotency check: %w", err)
	}
	if !claimed {
		return true, nil
	}
	if err = fn(ctx); err == nil {
		return false, nil
	}
	if forgetErr := m.Forget(ctx, consumer, eventID); forgetErr != nil {
		err = errors.Join(err, fmt.Errorf("release idempotency key: %w", forgetErr))
	}
	return false, err
}

func (m *Manager) marker(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errNoConsumer
	case eventID == uuid.Nil:
		return "", errNoEventID
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
