package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

const defaultCurrency = "EGP"

// PaymentCreateParams describes one card charge. LocationID falls back to the
// client's configured location and an empty IdempotencyKey gets a random one.
type PaymentCreateParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

// request builds an auto-completing CreatePayment call. Zero amounts are left
// off so Square reports the validation error itself.
func (p PaymentCreateParams) request(idempotencyKey string) *sq.CreatePaymentRequest {
	autocomplete := true
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       p.SourceID,
		Autocomplete:   &autocomplete,
		LocationID:     optional(p.LocationID),
		Note:           optional(p.Note),
		ReferenceID:    optional(p.ReferenceID),
	}
	if p.AmountCents > 0 {
		amount := p.AmountCents
		currency := sq.Currency(currencyCode(p.Currency))
		req.AmountMoney = &sq.Money{Amount: &amount, Currency: &currency}
	}
	return req
}

// optional trims v and returns nil when nothing is left.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func currencyCode(code string) string {
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		return code
	}
	return defaultCurrency
}
