package payments

import (
	"github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// Charge is the amount due and the order state it leads to.
type Charge struct {
	AmountCents int64
	NewStatus   enums.OrderStatus
	Kind        enums.PaymentKind
}

// ComputeCharge decides how much to collect for the order in its current
// state. Shipping orders are always paid in full.
func ComputeCharge(order *models.Order, payFull bool) (Charge, error) {
	if order == nil {
		return Charge{}, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !order.Status.IsPayable() {
		return Charge{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": string(order.Status)})
	}

	var charge Charge
	switch {
	case order.Status == enums.OrderStatusDepositPaid:
		charge = Charge{AmountCents: order.RemainingCents, NewStatus: enums.OrderStatusPaidInFull, Kind: enums.PaymentKindBalance}
	case order.DeliveryMethod == enums.DeliveryMethodShipping:
		charge = Charge{AmountCents: order.RemainingCents, NewStatus: enums.OrderStatusPaidInFull, Kind: enums.PaymentKindFull}
	case order.PaidCents != 0:
		return Charge{}, pkgerrors.New(pkgerrors.CodeStateConflict, "approved order already has a payment")
	case payFull:
		charge = Charge{AmountCents: order.RemainingCents, NewStatus: enums.OrderStatusPaidInFull, Kind: enums.PaymentKindFull}
	default:
		deposit := orders.DepositCents(order.TotalCents)
		if order.DepositCents != nil {
			deposit = *order.DepositCents
		}
		charge = Charge{AmountCents: deposit, NewStatus: enums.OrderStatusDepositPaid, Kind: enums.PaymentKindDeposit}
	}

	if charge.AmountCents <= 0 {
		return Charge{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if charge.AmountCents > order.RemainingCents {
		return Charge{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment exceeds the outstanding balance")
	}
	return charge, nil
}
