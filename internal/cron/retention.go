package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/logger"
)

const (
	notificationRetentionDays = 30
	outboxRetentionDays       = 7
	day                       = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository notificationsCleanupRepo
	Retention  int
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxRetentionRepo
	Retention  int
}

// purgeFunc deletes rows older than cutoff and reports how many went.
type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// retentionJob prunes rows that fell out of a day-based retention window.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	days  int
	purge purgeFunc
	now   func() time.Time
}

// NewNotificationCleanupJob drops notifications read more than Retention days ago.
// Unread notifications are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("notifications repository required")
	}
	return newRetentionJob("notification-cleanup", params.Logger, params.Retention, notificationRetentionDays,
		params.Repository.DeleteReadBefore)
}

// NewOutboxRetentionJob drops published outbox rows older than Retention days.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	purge := func(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
		err = params.DB.WithTx(ctx, func(tx *gorm.DB) error {
			deleted, err = params.Repository.DeletePublishedBefore(tx, cutoff)
			return err
		})
		return deleted, err
	}
	return newRetentionJob("outbox-retention", params.Logger, params.Retention, outboxRetentionDays, purge)
}

func newRetentionJob(name string, logg *logger.Logger, days, fallback int, purge purgeFunc) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if days <= 0 {
		days = fallback
	}
	return &retentionJob{name: name, logg: logg, days: days, purge: purge, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) cutoff() time.Time {
	return j.now().UTC().Add(-time.Duration(j.days) * day)
}

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.cutoff()
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if deleted == 0 {
		return nil
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "retention sweep removed rows")
	return nil
}
