package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/db/models"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/logger"
	"github.com/catchyfabric/market-backend/pkg/metrics"
	"github.com/catchyfabric/market-backend/pkg/outbox"
	"github.com/catchyfabric/market-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderReader interface {
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
}

// ApplyInput is a request to pay for an order.
type ApplyInput struct {
	Actor       auth.Actor
	OrderID     uuid.UUID
	PayFull     bool
	Method      enums.PaymentMethod
	Credentials Credentials
}

// ApplyResult is the committed order and the transaction that settled it.
type ApplyResult struct {
	Order       *models.Order              `json:"order"`
	Transaction *models.PaymentTransaction `json:"transaction"`
}

// Service applies payments to orders.
type Service struct {
	orders  orders.Repository
	reader  orderReader
	repo    *Repository
	tx      txRunner
	outbox  outboxPublisher
	gateway Gateway
	audit   auditlog.Writer
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// ServiceParams groups the payment service dependencies.
type ServiceParams struct {
	Orders  orders.Repository
	Reader  orderReader
	Repo    *Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Gateway Gateway
	Audit   auditlog.Writer
	Metrics *metrics.PaymentMetrics
	Logger  *logger.Logger
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case p.Reader == nil:
		return nil, fmt.Errorf("order reader required")
	case p.Repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case p.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case p.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case p.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	}
	audit := p.Audit
	if audit == nil {
		audit = auditlog.Nop{}
	}
	return &Service{
		orders:  p.Orders,
		reader:  p.Reader,
		repo:    p.Repo,
		tx:      p.Tx,
		outbox:  p.Outbox,
		gateway: p.Gateway,
		audit:   audit,
		metrics: p.Metrics,
		logg:    p.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Apply validates, settles, and commits a payment against an order.
func (s *Service) Apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	result, err := s.apply(ctx, input)
	metadata := map[string]any{
		"order_id": input.OrderID.String(),
		"method":   string(input.Method),
		"pay_full": input.PayFull,
	}
	if result != nil {
		metadata["amount_cents"] = result.Transaction.AmountCents
		metadata["transaction_id"] = result.Transaction.ID.String()
	}
	s.audit.Record(ctx, auditlog.Outcome(input.Actor.ID, enums.AuditActionPaymentApply, err, metadata))
	return result, err
}

func (s *Service) apply(ctx context.Context, input ApplyInput) (*ApplyResult, error) {
	actor := input.Actor
	if actor.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !actor.IsAdmin() && !(actor.Role == enums.RoleBuyer && order.BuyerID == actor.ID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or an admin can pay for this order")
	}

	charge, err := ComputeCharge(order, input.PayFull)
	if err != nil {
		return nil, err
	}
	instrument, err := ValidateCredentials(input.Method, input.Credentials)
	if err != nil {
		s.metrics.IncDeclined(string(input.Method))
		return nil, err
	}

	idempotencyKey := IdempotencyKey(order.ID, order.Version)
	settled, err := s.gateway.Charge(ctx, ChargeRequest{
		OrderID:        order.ID,
		AmountCents:    charge.AmountCents,
		Currency:       order.Currency,
		Method:         input.Method,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		s.metrics.IncDeclined(string(input.Method))
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
	}

	paid := order.PaidCents + charge.AmountCents
	remaining := order.TotalCents - paid
	updates := map[string]any{
		"paid_cents":      paid,
		"remaining_cents": remaining,
		"status":          charge.NewStatus,
		"payment_method":  input.Method,
	}
	now := s.now()
	if charge.NewStatus == enums.OrderStatusPaidInFull {
		updates["paid_in_full_at"] = now
	}

	txn := &models.PaymentTransaction{
		OrderID:          order.ID,
		PayerID:          actor.ID,
		AmountCents:      charge.AmountCents,
		Currency:         order.Currency,
		PaymentMethod:    input.Method,
		Kind:             charge.Kind,
		Status:           enums.PaymentStatusCompleted,
		Gateway:          settled.Gateway,
		GatewayReference: settled.Reference,
	}
	if instrument.CardBrand != nil {
		brand := string(*instrument.CardBrand)
		last4 := instrument.CardLast4
		txn.CardBrand = &brand
		txn.CardLast4 = &last4
	}
	meta := map[string]any{"idempotency_key": idempotencyKey, "pay_full": input.PayFull}
	if instrument.WalletLast4 != "" {
		meta["wallet_last4"] = instrument.WalletLast4
	}
	if txn.Metadata, err = json.Marshal(meta); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment metadata")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orders.WithTx(tx).UpdateWithVersion(ctx, order.ID, order.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order balance")
		}
		if !ok {
			return orders.ErrVersionConflict
		}
		if err := s.repo.WithTx(tx).Create(ctx, txn); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment transaction")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentApplied,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: &actor.ID, Role: string(actor.Role)},
			Data: payloads.OrderPaymentAppliedEvent{
				OrderID:        order.ID,
				BuyerID:        order.BuyerID,
				SellerID:       order.SellerID,
				TransactionID:  txn.ID,
				Kind:           charge.Kind,
				Method:         input.Method,
				AmountCents:    charge.AmountCents,
				PaidCents:      paid,
				RemainingCents: remaining,
				Status:         charge.NewStatus,
				Currency:       order.Currency,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment applied event")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) && s.logg != nil {
			logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
				"gateway_reference": settled.Reference,
				"idempotency_key":   idempotencyKey,
			})
			s.logg.Warn(logCtx, "payment settled but order changed concurrently")
		}
		return nil, err
	}

	s.metrics.ObserveApplied(string(input.Method), string(charge.Kind), order.Currency, charge.AmountCents)

	order.PaidCents = paid
	order.RemainingCents = remaining
	order.Status = charge.NewStatus
	method := input.Method
	order.PaymentMethod = &method
	order.Version++
	order.UpdatedAt = now
	if charge.NewStatus == enums.OrderStatusPaidInFull {
		order.PaidInFullAt = &now
	}
	return &ApplyResult{Order: order, Transaction: txn}, nil
}

// ListForOrder returns the transactions of an order the actor may read.
func (s *Service) ListForOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]models.PaymentTransaction, error) {
	if _, err := s.reader.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment transactions")
	}
	return rows, nil
}
