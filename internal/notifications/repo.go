package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

// Repository stores in-app notifications. Every user-facing call is scoped to
// the owning user.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	List(ctx context.Context, params listNotificationsParams) (pagination.Page[models.Notification], error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB { return q.Where("user_id = ?", userID) }
}

func unread(q *gorm.DB) *gorm.DB {
	return q.Where("read_at IS NULL")
}

// olderThan continues a newest-first listing after cursor.
func olderThan(cursor *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if cursor == nil {
			return q
		}
		return q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}

func (r *gormRepository) notifications(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *gormRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) (pagination.Page[models.Notification], error) {
	q := r.notifications(ctx).Scopes(ownedBy(params.UserID), olderThan(params.Cursor))
	if params.UnreadOnly {
		q = q.Scopes(unread)
	}

	var rows []models.Notification
	err := q.Order("created_at DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return pagination.Page[models.Notification]{}, err
	}
	return pagination.BuildPage(rows, params.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	}), nil
}

// MarkRead stamps read_at once; re-marking keeps the first timestamp. It
// reports whether the user owns the notification.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	var n models.Notification
	err := r.notifications(ctx).Scopes(ownedBy(userID)).
		Select("id", "read_at").
		Where("id = ?", notificationID).
		Limit(1).Find(&n).Error
	if err != nil || n.ID == uuid.Nil {
		return false, err
	}
	if n.ReadAt != nil {
		return true, nil
	}
	err = r.notifications(ctx).Scopes(unread).Where("id = ?", notificationID).UpdateColumn("read_at", now).Error
	return err == nil, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.notifications(ctx).Scopes(ownedBy(userID), unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) Delete(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Scopes(ownedBy(userID)).
		Where("id = ?", notificationID).
		Delete(&models.Notification{})
	return res.RowsAffected > 0, res.Error
}

// DeleteReadBefore purges notifications read before cutoff. Unread rows are
// never purged.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
