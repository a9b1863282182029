package enums

import "slices"

// OrderStatus maps to the order_status enum in Postgres.
type OrderStatus string

const (
	OrderStatusPendingApproval OrderStatus = "pending_approval"
	OrderStatusApproved        OrderStatus = "approved"
	OrderStatusRejected        OrderStatus = "rejected"
	OrderStatusDepositPaid     OrderStatus = "deposit_paid"
	OrderStatusPaidInFull      OrderStatus = "paid_in_full"
	OrderStatusProcessing      OrderStatus = "processing"
	OrderStatusShipped         OrderStatus = "shipped"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendingApproval,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusDepositPaid,
	OrderStatusPaidInFull,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// orderTransitions lists the structurally valid source -> target edges.
// Actor-specific rules live in the orders service.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPendingApproval: {OrderStatusApproved, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusApproved:        {OrderStatusDepositPaid, OrderStatusPaidInFull, OrderStatusCancelled},
	OrderStatusDepositPaid:     {OrderStatusPaidInFull, OrderStatusCancelled},
	OrderStatusPaidInFull:      {OrderStatusProcessing},
	OrderStatusProcessing:      {OrderStatusShipped, OrderStatusDelivered},
	OrderStatusShipped:         {OrderStatusDelivered},
}

var orderTransitionSet = buildOrderTransitionSet(orderTransitions)

func buildOrderTransitionSet(transitions map[OrderStatus][]OrderStatus) map[OrderStatus]map[OrderStatus]struct{} {
	set := make(map[OrderStatus]map[OrderStatus]struct{}, len(transitions))
	for from, tos := range transitions {
		next := make(map[OrderStatus]struct{}, len(tos))
		for _, to := range tos {
			next[to] = struct{}{}
		}
		set[from] = next
	}
	return set
}

// IsValid reports whether the value matches the canonical order_status enum.
func (s OrderStatus) IsValid() bool {
	return slices.Contains(validOrderStatuses, s)
}

// CanTransitionTo reports whether from -> next is an edge of the order state machine.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	targets, ok := orderTransitionSet[s]
	if !ok {
		return false
	}
	_, ok = targets[next]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitionSet[s]) == 0
}

// IsPayable reports whether a payment may be applied in this status.
func (s OrderStatus) IsPayable() bool {
	return s == OrderStatusApproved || s == OrderStatusDepositPaid
}

// IsPaymentOwned reports whether only payment application may enter this status.
func (s OrderStatus) IsPaymentOwned() bool {
	return s == OrderStatusDepositPaid || s == OrderStatusPaidInFull
}

// NextStatuses returns the allowed targets from s in declaration order.
func (s OrderStatus) NextStatuses() []OrderStatus {
	return append([]OrderStatus(nil), orderTransitions[s]...)
}

// ParseOrderStatus converts raw input into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum(validOrderStatuses, value, "order status")
}
