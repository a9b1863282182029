package auth

import (
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/enums"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   uuid.UUID
	Role enums.Role
}

// IsZero reports whether no identity is present.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}

func (a Actor) Is(role enums.Role) bool {
	return !a.IsZero() && a.Role == role
}

// IsAdmin is shorthand for Is(enums.RoleAdmin).
func (a Actor) IsAdmin() bool {
	return a.Is(enums.RoleAdmin)
}

// ActorFromClaims builds the actor attached to a verified access token.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{ID: claims.UserID, Role: claims.Role}
}
