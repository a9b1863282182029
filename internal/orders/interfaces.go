package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// UpdateWithVersion applies updates only when the stored version still
	// equals version, bumping it by one. It reports whether a row changed.
	UpdateWithVersion(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (bool, error)
	ListForActor(ctx context.Context, actor auth.Actor, params pagination.Params, filters ListFilters) (pagination.Page[models.Order], error)
	ListPaidInFullBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// UserLookup resolves the users referenced by orders.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}
