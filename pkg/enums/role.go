package enums

import (
	"fmt"
	"slices"
	"strings"
)

// Role is the canonical actor role shared by every layer.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSeller   Role = "seller"
	RoleShipping Role = "shipping"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{
	RoleBuyer,
	RoleSeller,
	RoleShipping,
	RoleAdmin,
}

// roleAliases maps legacy role names still present in issued tokens.
var roleAliases = map[string]Role{
	"merchant": RoleSeller,
	"delivery": RoleShipping,
	"user":     RoleBuyer,
}

// IsValid reports whether the value matches the canonical role enum.
func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts raw input into Role without accepting aliases.
func ParseRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// NormalizeTokenRole resolves a role claim read from a token. Aliases are
// translated and an empty claim defaults to buyer.
func NormalizeTokenRole(value string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return RoleBuyer, nil
	}
	if alias, ok := roleAliases[normalized]; ok {
		return alias, nil
	}
	return ParseRole(normalized)
}
