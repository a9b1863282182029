package enums

import (
	"fmt"
	"slices"
	"strings"
)

// PaymentMethod maps to the payment_method enum in Postgres.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodInstapay     PaymentMethod = "instapay"
	PaymentMethodVodafoneCash PaymentMethod = "vodafone_cash"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodInstapay,
	PaymentMethodVodafoneCash,
}

var paymentMethodAliases = map[string]PaymentMethod{
	"visa":          PaymentMethodCard,
	"mastercard":    PaymentMethodCard,
	"vodafone-cash": PaymentMethodVodafoneCash,
}

func (m PaymentMethod) IsValid() bool {
	return slices.Contains(validPaymentMethods, m)
}

// ParsePaymentMethod converts raw input into PaymentMethod, accepting the
// brand names older clients send for card payments.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if alias, ok := paymentMethodAliases[normalized]; ok {
		return alias, nil
	}
	for _, candidate := range validPaymentMethods {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

// PaymentStatus maps to the payment_status enum in Postgres.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) IsValid() bool {
	return slices.Contains(validPaymentStatuses, s)
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseEnum(validPaymentStatuses, value, "payment status")
}

// PaymentKind records which part of the order a transaction settled.
type PaymentKind string

const (
	PaymentKindDeposit PaymentKind = "deposit"
	PaymentKindFull    PaymentKind = "full"
	PaymentKindBalance PaymentKind = "balance"
)

// CardBrand identifies the network of an allow-listed test card.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMastercard CardBrand = "mastercard"
)
