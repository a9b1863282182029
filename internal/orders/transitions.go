package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
)

// ErrVersionConflict is returned when a compare-and-swap update loses a race.
var ErrVersionConflict = pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")

var sellerTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusApproved:   true,
	enums.OrderStatusRejected:   true,
	enums.OrderStatusCancelled:  true,
	enums.OrderStatusProcessing: true,
	enums.OrderStatusDelivered:  true,
}

var deliveryTargets = map[enums.OrderStatus]bool{
	enums.OrderStatusShipped:   true,
	enums.OrderStatusDelivered: true,
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	order, err := s.updateStatus(ctx, input, false)
	s.audit.Record(ctx, auditlog.Outcome(input.Actor.ID, enums.AuditActionOrderStatus, err, map[string]any{
		"order_id": input.OrderID.String(),
		"status":   string(input.Status),
	}))
	return order, err
}

func (s *service) UpdateDeliveryStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	order, err := s.updateStatus(ctx, input, true)
	s.audit.Record(ctx, auditlog.Outcome(input.Actor.ID, enums.AuditActionOrderStatus, err, map[string]any{
		"order_id": input.OrderID.String(),
		"status":   string(input.Status),
		"delivery": true,
	}))
	return order, err
}

func (s *service) updateStatus(ctx context.Context, input UpdateStatusInput, delivery bool) (*models.Order, error) {
	actor := input.Actor
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := checkRole(actor, delivery); err != nil {
		return nil, err
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}
	if delivery && !deliveryTargets[input.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery status must be shipped or delivered")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if err := authorizeTransition(order, actor); err != nil {
			return err
		}
		if err := checkTransition(order, input.Status, actor); err != nil {
			return err
		}
		updated, err = s.applyTransition(ctx, tx, repo, order, input.Status, actor)
		return err
	})
	if err != nil {
		s.logConflict(ctx, input.OrderID.String(), err)
		return nil, err
	}
	return updated, nil
}

func checkRole(actor auth.Actor, delivery bool) error {
	switch actor.Role {
	case enums.RoleAdmin, enums.RoleShipping:
		return nil
	case enums.RoleSeller:
		if delivery {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the shipping company can update delivery status")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot change order status")
	}
}

// authorizeTransition checks ownership of the order for the actor's role.
func authorizeTransition(order *models.Order, actor auth.Actor) error {
	switch actor.Role {
	case enums.RoleAdmin:
		return nil
	case enums.RoleSeller:
		if order.SellerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		return nil
	case enums.RoleShipping:
		if order.ShippingCompanyID == nil || *order.ShippingCompanyID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to this shipping company")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot change order status")
	}
}

// checkTransition validates the edge against the state machine, the
// delivery method, and the actor's role.
func checkTransition(order *models.Order, target enums.OrderStatus, actor auth.Actor) error {
	from := order.Status
	details := map[string]any{"from": string(from), "to": string(target)}

	if target.IsPaymentOwned() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "status is set by payment application").WithDetails(details)
	}
	if !from.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition").WithDetails(details)
	}

	shipping := order.DeliveryMethod == enums.DeliveryMethodShipping
	switch {
	case from == enums.OrderStatusProcessing && target == enums.OrderStatusShipped && !shipping,
		from == enums.OrderStatusShipped && target == enums.OrderStatusDelivered && !shipping:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transition requires a shipping order").WithDetails(details)
	case from == enums.OrderStatusProcessing && target == enums.OrderStatusDelivered && shipping:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "shipping orders must be shipped before delivery").WithDetails(details)
	}

	switch actor.Role {
	case enums.RoleSeller:
		if !sellerTargets[target] || (target == enums.OrderStatusDelivered && shipping) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot set this status").WithDetails(details)
		}
	case enums.RoleShipping:
		if !deliveryTargets[target] {
			return pkgerrors.New(pkgerrors.CodeForbidden, "shipping companies can only set delivery statuses").WithDetails(details)
		}
	}
	return nil
}

// applyTransition performs the CAS update and writes the status event.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, target enums.OrderStatus, actor auth.Actor) (*models.Order, error) {
	ok, err := repo.UpdateWithVersion(ctx, order.ID, order.Version, map[string]any{"status": target})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, ErrVersionConflict
	}

	from := order.Status
	order.Status = target
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actorRef(actor),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:           order.ID,
			BuyerID:           order.BuyerID,
			SellerID:          order.SellerID,
			ShippingCompanyID: order.ShippingCompanyID,
			DeliveryMethod:    order.DeliveryMethod,
			From:              from,
			To:                target,
			TotalCents:        order.TotalCents,
			Currency:          order.Currency,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status changed event")
	}
	return order, nil
}

func (s *service) AssignShippingCompany(ctx context.Context, input AssignShippingInput) (*models.Order, error) {
	order, err := s.assignShippingCompany(ctx, input)
	s.audit.Record(ctx, auditlog.Outcome(input.Actor.ID, enums.AuditActionOrderShipping, err, map[string]any{
		"order_id":            input.OrderID.String(),
		"shipping_company_id": input.ShippingCompanyID.String(),
	}))
	return order, err
}

func (s *service) assignShippingCompany(ctx context.Context, input AssignShippingInput) (*models.Order, error) {
	actor := input.Actor
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != enums.RoleSeller && actor.Role != enums.RoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the seller or an admin can assign shipping")
	}
	if input.ShippingCompanyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping company id required")
	}

	company, err := s.users.FindByID(ctx, input.ShippingCompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipping company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping company")
	}
	if company.Role != enums.RoleShipping || !company.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not an active shipping company")
	}

	var updated *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.load(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if actor.Role == enums.RoleSeller && order.SellerID != actor.ID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		if order.DeliveryMethod != enums.DeliveryMethodShipping {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order does not use shipping")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		ok, err := repo.UpdateWithVersion(ctx, order.ID, order.Version, map[string]any{"shipping_company_id": company.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign shipping company")
		}
		if !ok {
			return ErrVersionConflict
		}

		previous := order.ShippingCompanyID
		companyID := company.ID
		order.ShippingCompanyID = &companyID
		order.Version++
		order.UpdatedAt = time.Now().UTC()

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderShippingAssigned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderShippingAssignedEvent{
				OrderID:           order.ID,
				BuyerID:           order.BuyerID,
				SellerID:          order.SellerID,
				ShippingCompanyID: companyID,
				PreviousCompanyID: previous,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit shipping assigned event")
		}
		updated = order
		return nil
	})
	if err != nil {
		s.logConflict(ctx, input.OrderID.String(), err)
		return nil, err
	}
	return updated, nil
}

// AdvanceFulfillment moves paid_in_full orders settled before cutoff into
// processing on behalf of the system. Orders that changed underneath are
// skipped and picked up by the next run.
func (s *service) AdvanceFulfillment(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	candidates, err := s.repo.ListPaidInFullBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list paid orders")
	}

	advanced := 0
	for i := range candidates {
		order := candidates[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			_, err := s.applyTransition(ctx, tx, s.repo.WithTx(tx), &order, enums.OrderStatusProcessing, auth.Actor{})
			return err
		})
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
				s.logConflict(ctx, order.ID.String(), err)
				continue
			}
			return advanced, err
		}
		advanced++
	}
	return advanced, nil
}

func (s *service) logConflict(ctx context.Context, orderID string, err error) {
	if s.logg == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		return
	}
	s.logg.Warn(s.logg.WithOrderID(ctx, orderID), "order version conflict")
}
