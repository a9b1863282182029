package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
	"github.com/catchyfabric/market-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order placement, reads, and fulfillment transitions.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) ([]models.Order, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor auth.Actor, params pagination.Params, filters ListFilters) (pagination.Page[models.Order], error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	UpdateDeliveryStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	AssignShippingCompany(ctx context.Context, input AssignShippingInput) (*models.Order, error)
	AdvanceFulfillment(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	users  UserLookup
	audit  auditlog.Writer
	logg   *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, users UserLookup, audit auditlog.Writer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	if audit == nil {
		audit = auditlog.Nop{}
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		users:  users,
		audit:  audit,
		logg:   logg,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) ([]models.Order, error) {
	created, err := s.placeOrder(ctx, input)
	metadata := map[string]any{"order_count": len(created), "delivery_method": string(input.DeliveryMethod)}
	s.audit.Record(ctx, auditlog.Outcome(input.Actor.ID, enums.AuditActionOrderPlace, err, metadata))
	return created, err
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) ([]models.Order, error) {
	actor := input.Actor
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.Role != enums.RoleBuyer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers can place orders")
	}
	if err := validatePlaceOrder(input); err != nil {
		return nil, err
	}

	buyer, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	if !buyer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account is deactivated")
	}

	shipping := input.DeliveryMethod == enums.DeliveryMethodShipping
	var address *string
	if shipping {
		trimmed := strings.TrimSpace(*input.ShippingAddress)
		address = &trimmed
	}

	partitions := partitionBySeller(input.Items)
	orders := make([]models.Order, 0, len(partitions))
	for _, partition := range partitions {
		total, fee, deposit, err := partitionTotals(partition, shipping)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total too large").
				WithDetails(map[string]any{"seller_id": partition.SellerID.String()})
		}
		if total <= 0 || (deposit != nil && *deposit <= 0) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total too small").
				WithDetails(map[string]any{"seller_id": partition.SellerID.String()})
		}
		seller, err := s.resolveSeller(ctx, partition.SellerID)
		if err != nil {
			return nil, err
		}
		sellerName := strings.TrimSpace(partition.SellerName)
		if sellerName == "" {
			sellerName = seller.Name
		}
		items, err := buildItems(partition.Items)
		if err != nil {
			return nil, err
		}
		orders = append(orders, models.Order{
			BuyerID:          buyer.ID,
			BuyerName:        buyer.Name,
			BuyerEmail:       buyer.Email,
			SellerID:         seller.ID,
			SellerName:       sellerName,
			TotalCents:       total,
			DepositCents:     deposit,
			PaidCents:        0,
			RemainingCents:   total,
			ShippingFeeCents: fee,
			Currency:         Currency,
			DeliveryMethod:   input.DeliveryMethod,
			Status:           enums.OrderStatusPendingApproval,
			ShippingAddress:  address,
			PaymentMethod:    input.PaymentMethod,
			Version:          1,
			Items:            items,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for i := range orders {
			order := &orders[i]
			if err := repo.Create(ctx, order); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}

			var depositCents int64
			if order.DepositCents != nil {
				depositCents = *order.DepositCents
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actorRef(actor),
				Data: payloads.OrderCreatedEvent{
					OrderID:        order.ID,
					BuyerID:        order.BuyerID,
					SellerID:       order.SellerID,
					DeliveryMethod: order.DeliveryMethod,
					PaymentMethod:  order.PaymentMethod,
					ItemCount:      len(order.Items),
					TotalCents:     order.TotalCents,
					DepositCents:   depositCents,
					Currency:       order.Currency,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// resolveSeller accepts only active seller accounts as the other side of an order.
func (s *service) resolveSeller(ctx context.Context, id uuid.UUID) (*models.User, error) {
	details := map[string]any{"seller_id": id.String()}
	seller, err := s.users.FindByID(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown seller").WithDetails(details)
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	case seller.Role != enums.RoleSeller || !seller.IsActive:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller is not accepting orders").WithDetails(details)
	}
	return seller, nil
}

func validatePlaceOrder(input PlaceOrderInput) error {
	if !input.DeliveryMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery method")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if input.DeliveryMethod == enums.DeliveryMethodShipping &&
		(input.ShippingAddress == nil || strings.TrimSpace(*input.ShippingAddress) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address required for shipping orders")
	}
	if input.PaymentMethod != nil && !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	for i, item := range input.Items {
		details := map[string]any{"index": i}
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required").WithDetails(details)
		case strings.TrimSpace(item.Name) == "":
			return pkgerrors.New(pkgerrors.CodeValidation, "product name required").WithDetails(details)
		case item.SellerID == uuid.Nil:
			return pkgerrors.New(pkgerrors.CodeValidation, "seller id required").WithDetails(details)
		case item.Quantity <= 0:
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").WithDetails(details)
		case item.UnitPriceCents < 0:
			return pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative").WithDetails(details)
		}
	}
	return nil
}

func buildItems(items []CartItem) ([]models.OrderItem, error) {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		line, err := LineTotalCents(item.UnitPriceCents, item.Quantity)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "line total too large").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		out = append(out, models.OrderItem{
			ProductID:           strings.TrimSpace(item.ProductID),
			Name:                strings.TrimSpace(item.Name),
			UnitPriceCents:      item.UnitPriceCents,
			Quantity:            item.Quantity,
			LineTotalCents:      line,
			ImageURL:            item.ImageURL,
			IsReserved:          item.IsReserved,
			DownPaymentRequired: item.DownPaymentRequired,
		})
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	order, err := s.load(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !canRead(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to this user")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, params pagination.Params, filters ListFilters) (pagination.Page[models.Order], error) {
	if actor.IsZero() {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if filters.Status != nil && !filters.Status.IsValid() {
		return pagination.Page[models.Order]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListForActor(ctx, actor, params, filters)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

func (s *service) load(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	if actor.IsZero() {
		return outbox.SystemActor()
	}
	id := actor.ID
	return &outbox.ActorRef{UserID: &id, Role: string(actor.Role)}
}
