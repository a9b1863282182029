package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null" json:"name"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         enums.Role `gorm:"column:role;type:user_role;not null" json:"role"`
	AvatarURL    *string    `gorm:"column:avatar_url" json:"avatar_url"`
	Phone        *string    `gorm:"column:phone" json:"phone"`
	Locale       string     `gorm:"column:locale;not null;default:en" json:"locale"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at" json:"last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
