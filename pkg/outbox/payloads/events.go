package payloads

import (
	"github.com/catchyfabric/market-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent is emitted once per seller order produced by checkout.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	BuyerID        uuid.UUID            `json:"buyer_id"`
	SellerID       uuid.UUID            `json:"seller_id"`
	DeliveryMethod enums.DeliveryMethod `json:"delivery_method"`
	PaymentMethod  *enums.PaymentMethod `json:"payment_method,omitempty"`
	ItemCount      int                  `json:"item_count"`
	TotalCents     int64                `json:"total_cents"`
	DepositCents   int64                `json:"deposit_cents"`
	Currency       string               `json:"currency"`
}

// OrderStatusChangedEvent records a single FSM transition.
type OrderStatusChangedEvent struct {
	OrderID           uuid.UUID            `json:"order_id"`
	BuyerID           uuid.UUID            `json:"buyer_id"`
	SellerID          uuid.UUID            `json:"seller_id"`
	ShippingCompanyID *uuid.UUID           `json:"shipping_company_id,omitempty"`
	DeliveryMethod    enums.DeliveryMethod `json:"delivery_method"`
	From              enums.OrderStatus    `json:"from"`
	To                enums.OrderStatus    `json:"to"`
	TotalCents        int64                `json:"total_cents"`
	Currency          string               `json:"currency"`
}

// OrderShippingAssignedEvent tells the shipping company it owns delivery.
type OrderShippingAssignedEvent struct {
	OrderID           uuid.UUID  `json:"order_id"`
	BuyerID           uuid.UUID  `json:"buyer_id"`
	SellerID          uuid.UUID  `json:"seller_id"`
	ShippingCompanyID uuid.UUID  `json:"shipping_company_id"`
	PreviousCompanyID *uuid.UUID `json:"previous_company_id,omitempty"`
}

// OrderPaymentAppliedEvent carries the committed transaction and the new balance.
type OrderPaymentAppliedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	SellerID       uuid.UUID           `json:"seller_id"`
	TransactionID  uuid.UUID           `json:"transaction_id"`
	Kind           enums.PaymentKind   `json:"kind"`
	Method         enums.PaymentMethod `json:"method"`
	AmountCents    int64               `json:"amount_cents"`
	PaidCents      int64               `json:"paid_cents"`
	RemainingCents int64               `json:"remaining_cents"`
	Status         enums.OrderStatus   `json:"status"`
	Currency       string              `json:"currency"`
}

// UserRegisteredEvent is emitted by self-registration.
type UserRegisteredEvent struct {
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Role   enums.Role `json:"role"`
}

// UserCreatedByAdminEvent is emitted when an admin provisions an account.
type UserCreatedByAdminEvent struct {
	UserID    uuid.UUID  `json:"user_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      enums.Role `json:"role"`
	CreatedBy uuid.UUID  `json:"created_by"`
}
