package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        enums.Role `json:"role"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Locale      string     `json:"locale"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Name         string
	Email        string
	PasswordHash string
	Role         enums.Role
	Phone        *string
	Locale       string
	IsActive     *bool
}

// UpdateProfileInput carries the self-editable profile fields. Nil leaves a field unchanged.
type UpdateProfileInput struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Locale    *string `json:"locale,omitempty" validate:"omitempty,oneof=en ar"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		AvatarURL:   u.AvatarURL,
		Phone:       u.Phone,
		Locale:      u.Locale,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	locale := c.Locale
	if locale == "" {
		locale = LocaleEnglish
	}

	return &models.User{
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Role:         c.Role,
		Phone:        c.Phone,
		Locale:       locale,
		IsActive:     isActive,
	}
}

const (
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)
