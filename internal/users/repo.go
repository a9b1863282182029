package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/db/models"
)

// Repository persists user accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx, or r itself when tx is nil.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects an already normalized address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.users(ctx).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.touch(ctx, id, map[string]any{"password_hash": hash})
	return err
}

// UpdateProfile applies the column map and reports whether the user exists.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	return r.touch(ctx, id, updates)
}

// SetActive toggles is_active and reports whether the user exists.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error) {
	return r.touch(ctx, id, map[string]any{"is_active": active})
}

// touch writes columns plus updated_at on one user row.
func (r *Repository) touch(ctx context.Context, id uuid.UUID, columns map[string]any) (bool, error) {
	values := map[string]any{"updated_at": time.Now().UTC()}
	for k, v := range columns {
		values[k] = v
	}
	res := r.users(ctx).Where("id = ?", id).Updates(values)
	return res.RowsAffected > 0, res.Error
}
