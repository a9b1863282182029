package auditlog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

// Repository persists rows of the logs table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListForUser returns entries newest first using keyset pagination.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (pagination.Page[models.AuditLog], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.AuditLog]{}, err
	}

	query := r.db.WithContext(ctx).
		Model(&models.AuditLog{}).
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.AuditLog
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[models.AuditLog]{}, err
	}

	return pagination.BuildPage(rows, params.Limit, func(row models.AuditLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	}), nil
}
