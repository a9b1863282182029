package stats

import (
	"context"

	"gorm.io/gorm"
)

const (
	usersByRoleQuery    = `SELECT role, COUNT(*) AS count FROM users GROUP BY role`
	ordersByStatusQuery = `SELECT status, COUNT(*) AS count FROM orders GROUP BY status`
	balancesQuery       = `SELECT COALESCE(SUM(paid_cents), 0) AS paid_cents, COALESCE(SUM(remaining_cents), 0) AS outstanding_cents FROM orders WHERE status NOT IN ('rejected', 'cancelled')`
	transactionsQuery   = `SELECT COUNT(*) AS count FROM payment_transactions`
	deadLetteredQuery   = `SELECT error_reason, COUNT(*) AS count FROM outbox_dlq GROUP BY error_reason`
)

type balances struct {
	PaidCents        int64 `gorm:"column:paid_cents"`
	OutstandingCents int64 `gorm:"column:outstanding_cents"`
}

// Repository runs the aggregate queries behind the admin dashboard.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) UsersByRole(ctx context.Context) (map[string]int64, error) {
	return r.grouped(ctx, usersByRoleQuery)
}

func (r *Repository) OrdersByStatus(ctx context.Context) (map[string]int64, error) {
	return r.grouped(ctx, ordersByStatusQuery)
}

// DeadLetteredByReason counts outbox events that were never published.
func (r *Repository) DeadLetteredByReason(ctx context.Context) (map[string]int64, error) {
	return r.grouped(ctx, deadLetteredQuery)
}

func (r *Repository) grouped(ctx context.Context, query string) (map[string]int64, error) {
	rows, err := r.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int64{}
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}

func (r *Repository) Balances(ctx context.Context) (balances, error) {
	var out balances
	err := r.db.WithContext(ctx).Raw(balancesQuery).Scan(&out).Error
	return out, err
}

func (r *Repository) TransactionCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(transactionsQuery).Scan(&count).Error
	return count, err
}
