package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db"
	"github.com/catchyfabric/market-backend/pkg/db/dbtest"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/outbox"
)

type readNotificationsStub struct {
	cutoffs []time.Time
	rows    int64
	err     error
}

func (s *readNotificationsStub) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.rows, s.err
}

type failingRetentionRepo struct{}

func (failingRetentionRepo) DeletePublishedBefore(*gorm.DB, time.Time) (int64, error) {
	return 0, errors.New("boom")
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func pinnedRetentionJob(t *testing.T, job Job, err error, now time.Time) *retentionJob {
	t.Helper()
	require.NoError(t, err)
	rj, ok := job.(*retentionJob)
	require.True(t, ok, "unexpected job type %T", job)
	rj.now = func() time.Time { return now }
	return rj
}

func TestNotificationCleanupUsesDefaultWindow(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &readNotificationsStub{rows: 42}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: repo})
	rj := pinnedRetentionJob(t, job, err, now)

	require.NoError(t, rj.Run(context.Background()))
	require.Len(t, repo.cutoffs, 1)
	assert.WithinDuration(t, now.AddDate(0, 0, -notificationRetentionDays), repo.cutoffs[0], 0)
	assert.Equal(t, "notification-cleanup", rj.Name())
}

func TestNotificationCleanupHonoursConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &readNotificationsStub{}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: repo, Retention: 3})
	rj := pinnedRetentionJob(t, job, err, now)

	require.NoError(t, rj.Run(context.Background()))
	assert.WithinDuration(t, now.AddDate(0, 0, -3), repo.cutoffs[0], 0)
}

func TestNotificationCleanupWrapsRepositoryError(t *testing.T) {
	repo := &readNotificationsStub{err: errors.New("boom")}
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), Repository: repo})
	require.NoError(t, err)

	runErr := job.Run(context.Background())
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "notification-cleanup")
}

func TestRetentionJobsRequireDependencies(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop()})
	assert.Error(t, err)
	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Repository: &readNotificationsStub{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), Repository: failingRetentionRepo{}})
	assert.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logger.Nop(), DB: passthroughTx{}})
	assert.Error(t, err)
}

func TestOutboxRetentionKeepsPendingAndRecentRows(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	stale := now.Add(-10 * day)
	fresh := now.Add(-time.Hour)

	insert := func(published *time.Time) uuid.UUID {
		row := models.OutboxEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"version":1}`),
			PublishedAt:   published,
		}
		require.NoError(t, conn.Create(&row).Error)
		return row.ID
	}
	staleID := insert(&stale)
	freshID := insert(&fresh)
	pendingID := insert(nil)

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         db.Wrap(conn),
		Repository: outbox.NewRepository(conn),
	})
	rj := pinnedRetentionJob(t, job, err, now)
	require.NoError(t, rj.Run(context.Background()))

	var left []models.OutboxEvent
	require.NoError(t, conn.Find(&left).Error)
	kept := map[uuid.UUID]bool{}
	for _, row := range left {
		kept[row.ID] = true
	}
	assert.False(t, kept[staleID])
	assert.True(t, kept[freshID])
	assert.True(t, kept[pendingID])
}

func TestOutboxRetentionPropagatesError(t *testing.T) {
	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: failingRetentionRepo{},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}
