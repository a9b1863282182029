package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// SystemStats is the admin dashboard summary.
type SystemStats struct {
	UsersByRole           map[enums.Role]int64        `json:"users_by_role"`
	TotalUsers            int64                       `json:"total_users"`
	OrdersByStatus        map[enums.OrderStatus]int64 `json:"orders_by_status"`
	TotalOrders           int64                       `json:"total_orders"`
	TotalPaidCents        int64                       `json:"total_paid_cents"`
	TotalOutstandingCents int64                       `json:"total_outstanding_cents"`
	TransactionCount      int64                       `json:"transaction_count"`
	DeadLetteredEvents    map[string]int64            `json:"dead_lettered_events"`
	Currency              string                      `json:"currency"`
	GeneratedAt           time.Time                   `json:"generated_at"`
}

type aggregates interface {
	UsersByRole(ctx context.Context) (map[string]int64, error)
	OrdersByStatus(ctx context.Context) (map[string]int64, error)
	Balances(ctx context.Context) (balances, error)
	TransactionCount(ctx context.Context) (int64, error)
	DeadLetteredByReason(ctx context.Context) (map[string]int64, error)
}

type Service struct {
	repo     aggregates
	currency string
	now      func() time.Time
}

func NewService(repo *Repository, currency string) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stats repository required")
	}
	return &Service{repo: repo, currency: currency, now: func() time.Time { return time.Now().UTC() }}, nil
}

// GetSystemStats aggregates users, orders, payments and outbox failures. Admin only.
func (s *Service) GetSystemStats(ctx context.Context, actor auth.Actor) (*SystemStats, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	out := &SystemStats{
		UsersByRole:    map[enums.Role]int64{},
		OrdersByStatus: map[enums.OrderStatus]int64{},
		Currency:       s.currency,
		GeneratedAt:    s.now(),
	}
	for _, role := range []enums.Role{enums.RoleBuyer, enums.RoleSeller, enums.RoleShipping, enums.RoleAdmin} {
		out.UsersByRole[role] = 0
	}

	roles, err := s.repo.UsersByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count users")
	}
	for key, count := range roles {
		out.UsersByRole[enums.Role(key)] = count
		out.TotalUsers += count
	}

	statuses, err := s.repo.OrdersByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	for key, count := range statuses {
		out.OrdersByStatus[enums.OrderStatus(key)] = count
		out.TotalOrders += count
	}

	totals, err := s.repo.Balances(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum balances")
	}
	out.TotalPaidCents = totals.PaidCents
	out.TotalOutstandingCents = totals.OutstandingCents

	if out.TransactionCount, err = s.repo.TransactionCount(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transactions")
	}
	if out.DeadLetteredEvents, err = s.repo.DeadLetteredByReason(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count dead-lettered events")
	}
	return out, nil
}
