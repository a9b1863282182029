package orders

import (
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

// The filters below never mutate their input and always return a fresh
// slice, so the same read can be repeated with identical results.

// BuyerOrders selects the orders the actor placed.
func BuyerOrders(orders []models.Order, actor auth.Actor) []models.Order {
	return selectOrders(orders, actor, func(o models.Order) bool {
		return o.BuyerID == actor.ID
	})
}

// SellerOrders selects the orders addressed to the actor as seller.
func SellerOrders(orders []models.Order, actor auth.Actor) []models.Order {
	return selectOrders(orders, actor, func(o models.Order) bool {
		return o.SellerID == actor.ID
	})
}

// ShippingOrders selects shipping-method orders assigned to the actor's company.
func ShippingOrders(orders []models.Order, actor auth.Actor) []models.Order {
	return selectOrders(orders, actor, func(o models.Order) bool {
		return o.DeliveryMethod == enums.DeliveryMethodShipping &&
			o.ShippingCompanyID != nil &&
			*o.ShippingCompanyID == actor.ID
	})
}

// AdminOrders returns every order for an admin and nothing for anyone else.
func AdminOrders(orders []models.Order, actor auth.Actor) []models.Order {
	return selectOrders(orders, actor, func(models.Order) bool {
		return actor.Role == enums.RoleAdmin
	})
}

// ForActor dispatches to the filter matching the actor's role.
func ForActor(orders []models.Order, actor auth.Actor) []models.Order {
	switch actor.Role {
	case enums.RoleBuyer:
		return BuyerOrders(orders, actor)
	case enums.RoleSeller:
		return SellerOrders(orders, actor)
	case enums.RoleShipping:
		return ShippingOrders(orders, actor)
	case enums.RoleAdmin:
		return AdminOrders(orders, actor)
	default:
		return []models.Order{}
	}
}

func selectOrders(orders []models.Order, actor auth.Actor, keep func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0, len(orders))
	if actor.IsZero() {
		return out
	}
	for _, order := range orders {
		if keep(order) {
			out = append(out, order)
		}
	}
	return out
}

// canRead reports whether the actor is a party to the order.
func canRead(order *models.Order, actor auth.Actor) bool {
	if order == nil || actor.IsZero() {
		return false
	}
	switch actor.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleBuyer:
		return order.BuyerID == actor.ID
	case enums.RoleSeller:
		return order.SellerID == actor.ID
	case enums.RoleShipping:
		return order.DeliveryMethod == enums.DeliveryMethodShipping &&
			order.ShippingCompanyID != nil && *order.ShippingCompanyID == actor.ID
	default:
		return false
	}
}
