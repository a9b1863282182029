package orders

import (
	"strings"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/api/validators"
	internalorders "github.com/catchyfabric/market-backend/internal/orders"
	"github.com/catchyfabric/market-backend/internal/payments"
	"github.com/catchyfabric/market-backend/pkg/auth"
	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// CartItemRequest is one cart line as the client submits it.
type CartItemRequest struct {
	ProductID           string  `json:"product_id"`
	Name                string  `json:"name"`
	UnitPriceCents      int64   `json:"unit_price_cents"`
	Quantity            int     `json:"quantity"`
	SellerID            string  `json:"seller_id" validate:"required"`
	SellerName          string  `json:"seller_name"`
	ImageURL            *string `json:"image_url,omitempty"`
	IsReserved          bool    `json:"is_reserved"`
	DownPaymentRequired bool    `json:"down_payment_required"`
}

// PlaceOrderRequest is the checkout payload. Item rules are enforced by the order service.
type PlaceOrderRequest struct {
	Items           []CartItemRequest `json:"items" validate:"dive"`
	DeliveryMethod  string            `json:"delivery_method" validate:"required"`
	ShippingAddress *string           `json:"shipping_address,omitempty"`
	PaymentMethod   *string           `json:"payment_method,omitempty"`
}

// ToInput converts the payload for the given buyer.
func (r PlaceOrderRequest) ToInput(actor auth.Actor) (internalorders.PlaceOrderInput, error) {
	method, err := enums.ParseDeliveryMethod(strings.TrimSpace(r.DeliveryMethod))
	if err != nil {
		return internalorders.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery method")
	}

	input := internalorders.PlaceOrderInput{
		Actor:           actor,
		DeliveryMethod:  method,
		ShippingAddress: r.ShippingAddress,
		Items:           make([]internalorders.CartItem, 0, len(r.Items)),
	}
	if r.PaymentMethod != nil && strings.TrimSpace(*r.PaymentMethod) != "" {
		pm, err := enums.ParsePaymentMethod(*r.PaymentMethod)
		if err != nil {
			return internalorders.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
		input.PaymentMethod = &pm
	}
	for i, item := range r.Items {
		sellerID, err := uuid.Parse(strings.TrimSpace(item.SellerID))
		if err != nil {
			return internalorders.PlaceOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id").
				WithDetails(map[string]any{"index": i})
		}
		input.Items = append(input.Items, internalorders.CartItem{
			ProductID:           item.ProductID,
			Name:                item.Name,
			UnitPriceCents:      item.UnitPriceCents,
			Quantity:            item.Quantity,
			SellerID:            sellerID,
			SellerName:          item.SellerName,
			ImageURL:            item.ImageURL,
			IsReserved:          item.IsReserved,
			DownPaymentRequired: item.DownPaymentRequired,
		})
	}
	return input, nil
}

// StatusRequest carries a target status for the manual transition endpoints.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatusRequest is the callable form, which names the order in the body.
type UpdateOrderStatusRequest struct {
	OrderID string `json:"order_id" validate:"required"`
	Status  string `json:"status" validate:"required"`
}

func (r UpdateOrderStatusRequest) ToInput(actor auth.Actor) (internalorders.UpdateStatusInput, error) {
	orderID, err := validators.ParseUUID(r.OrderID, "order_id")
	if err != nil {
		return internalorders.UpdateStatusInput{}, err
	}
	return statusInput(actor, orderID, r.Status)
}

func statusInput(actor auth.Actor, orderID uuid.UUID, raw string) (internalorders.UpdateStatusInput, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(raw))
	if err != nil {
		return internalorders.UpdateStatusInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	return internalorders.UpdateStatusInput{Actor: actor, OrderID: orderID, Status: status}, nil
}

type ShippingCompanyRequest struct {
	ShippingCompanyID string `json:"shipping_company_id" validate:"required"`
}

// CardRequest is the raw card the client submits.
type CardRequest struct {
	Number string `json:"number"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// PaymentRequest pays for an order. Method may be omitted when the caller fixes it.
type PaymentRequest struct {
	OrderID      string       `json:"order_id" validate:"required"`
	PayFull      bool         `json:"pay_full"`
	Method       string       `json:"method,omitempty"`
	Card         *CardRequest `json:"card,omitempty"`
	WalletNumber string       `json:"wallet_number,omitempty"`
}

// ToInput converts the payload. A non-empty fixed method overrides the payload's method.
func (r PaymentRequest) ToInput(actor auth.Actor, fixed enums.PaymentMethod) (payments.ApplyInput, error) {
	orderID, err := validators.ParseUUID(r.OrderID, "order_id")
	if err != nil {
		return payments.ApplyInput{}, err
	}

	method := fixed
	if method == "" {
		method, err = enums.ParsePaymentMethod(r.Method)
		if err != nil {
			return payments.ApplyInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method")
		}
	}

	creds := payments.Credentials{WalletNumber: r.WalletNumber}
	if r.Card != nil {
		creds.Card = &payments.CardDetails{Number: r.Card.Number, Expiry: r.Card.Expiry, CVV: r.Card.CVV}
	}
	return payments.ApplyInput{
		Actor:       actor,
		OrderID:     orderID,
		PayFull:     r.PayFull,
		Method:      method,
		Credentials: creds,
	}, nil
}
