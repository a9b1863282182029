package auth

import (
	"github.com/catchyfabric/market-backend/internal/users"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the self-service sign-up payload. The role is always buyer.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required,notblank,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Locale   string  `json:"locale,omitempty" validate:"omitempty,oneof=en ar"`
}

// RefreshRequest carries the refresh token paired with the presented access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest verifies the current password before storing a new one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// AdminCreateUserRequest provisions an account with an explicit role.
type AdminCreateUserRequest struct {
	Name     string     `json:"name" validate:"required,notblank,max=120"`
	Email    string     `json:"email" validate:"required,email"`
	Role     enums.Role `json:"role" validate:"required"`
	Password *string    `json:"password,omitempty"`
	Phone    *string    `json:"phone,omitempty" validate:"omitempty,max=32"`
	Locale   string     `json:"locale,omitempty" validate:"omitempty,oneof=en ar"`
}

// SessionResponse contains the tokens and user produced by login, registration, or refresh.
type SessionResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *users.UserDTO `json:"user,omitempty"`
}

// AdminCreateUserResponse returns the created user and, when one was generated, its temporary password.
type AdminCreateUserResponse struct {
	User              *users.UserDTO `json:"user"`
	TemporaryPassword string         `json:"temporary_password,omitempty"`
}
