package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"

	"github.com/catchyfabric/market-backend/pkg/config"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
	"github.com/catchyfabric/market-backend/pkg/square"
)

const (
	GatewaySimulated = "simulated"
	GatewaySquare    = "square"
)

// ChargeRequest is what the service asks a gateway to settle.
type ChargeRequest struct {
	OrderID        uuid.UUID
	AmountCents    int64
	Currency       string
	Method         enums.PaymentMethod
	IdempotencyKey string
}

// ChargeResult identifies the settled charge at the gateway.
type ChargeResult struct {
	Gateway   string
	Reference string
}

// Gateway settles a charge. Implementations must honor ctx cancellation.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// IdempotencyKey ties a charge to one version of the order so retries and
// racing requests against the same version collapse at the gateway.
func IdempotencyKey(orderID uuid.UUID, version int) string {
	return fmt.Sprintf("order:%s:v%d", orderID, version)
}

// SimulatedGateway waits for the settlement delay and then succeeds.
type SimulatedGateway struct {
	delay time.Duration
}

func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	if delay < 0 {
		delay = 0
	}
	return &SimulatedGateway{delay: delay}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.AmountCents <= 0 {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChargeResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "settlement interrupted")
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return ChargeResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settlement interrupted")
	}
	return ChargeResult{Gateway: GatewaySimulated, Reference: "sim_" + uuid.NewString()}, nil
}

type cardPayments interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// SquareGateway charges cards through Square and hands every other method to
// the fallback gateway.
type SquareGateway struct {
	payments cardPayments
	fallback Gateway
}

func NewSquareGateway(payments cardPayments, fallback Gateway) (*SquareGateway, error) {
	if payments == nil {
		return nil, fmt.Errorf("square payments client required")
	}
	if fallback == nil {
		return nil, fmt.Errorf("fallback gateway required")
	}
	return &SquareGateway{payments: payments, fallback: fallback}, nil
}

func (g *SquareGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if req.Method != enums.PaymentMethodCard {
		return g.fallback.Charge(ctx, req)
	}
	payment, err := g.payments.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		SourceID:       square.SandboxCardNonce,
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    req.OrderID.String(),
		Note:           "order " + req.OrderID.String(),
	})
	if err != nil {
		return ChargeResult{}, err
	}
	if payment == nil || payment.GetID() == nil || strings.TrimSpace(*payment.GetID()) == "" {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeDependency, "square returned no payment id")
	}
	if status := payment.GetStatus(); status != nil && strings.EqualFold(*status, "FAILED") {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "card was declined")
	}
	return ChargeResult{Gateway: GatewaySquare, Reference: *payment.GetID()}, nil
}

// NewGatewayFromConfig selects the gateway named by the payments config.
func NewGatewayFromConfig(cfg config.PaymentsConfig, squareClient *square.Client) (Gateway, error) {
	simulated := NewSimulatedGateway(cfg.SettlementDelay)
	switch cfg.GatewayKind() {
	case config.PaymentGatewaySimulated:
		return simulated, nil
	case config.PaymentGatewaySquare:
		if squareClient == nil {
			return nil, fmt.Errorf("square client required for the square gateway")
		}
		return NewSquareGateway(squareClient, simulated)
	default:
		return nil, fmt.Errorf("unknown payments gateway %q", cfg.Gateway)
	}
}
