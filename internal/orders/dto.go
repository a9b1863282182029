package orders

import (
	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/enums"
)

// CartItem is a product snapshot taken from the buyer's cart.
type CartItem struct {
	ProductID           string
	Name                string
	UnitPriceCents      int64
	Quantity            int
	SellerID            uuid.UUID
	SellerName          string
	ImageURL            *string
	IsReserved          bool
	DownPaymentRequired bool
}

// PlaceOrderInput is a checkout request.
type PlaceOrderInput struct {
	Actor           auth.Actor
	Items           []CartItem
	DeliveryMethod  enums.DeliveryMethod
	ShippingAddress *string
	PaymentMethod   *enums.PaymentMethod
}

// UpdateStatusInput requests a manual transition.
type UpdateStatusInput struct {
	Actor   auth.Actor
	OrderID uuid.UUID
	Status  enums.OrderStatus
}

// AssignShippingInput sets the delivering company on a shipping order.
type AssignShippingInput struct {
	Actor             auth.Actor
	OrderID           uuid.UUID
	ShippingCompanyID uuid.UUID
}

// ListFilters narrows ListForActor results.
type ListFilters struct {
	Status *enums.OrderStatus
}
