package payments

import (
	"strings"

	"github.com/catchyfabric/market-backend/pkg/enums"
	pkgerrors "github.com/catchyfabric/market-backend/pkg/errors"
)

// Settlement is simulated, so only these credentials are accepted.
const (
	testVisaNumber       = "4111111111111111"
	testMastercardNumber = "5555555555554444"
	testCardExpiry       = "12/34"
	testCardCVV          = "123"
	testInstapayNumber   = "01112223334"
	vodafoneCashPrefix   = "010"
	walletNumberLength   = 11
)

var testCards = map[string]enums.CardBrand{
	testVisaNumber:       enums.CardBrandVisa,
	testMastercardNumber: enums.CardBrandMastercard,
}

// CardDetails is the raw card input from the client.
type CardDetails struct {
	Number string
	Expiry string
	CVV    string
}

// Credentials carries whichever payment instrument the method needs.
type Credentials struct {
	Card         *CardDetails
	WalletNumber string
}

// Instrument is the non-sensitive view of a validated credential.
type Instrument struct {
	CardBrand   *enums.CardBrand
	CardLast4   string
	WalletLast4 string
}

// ValidateCredentials checks the credential against the allow-list for method.
func ValidateCredentials(method enums.PaymentMethod, creds Credentials) (Instrument, error) {
	switch method {
	case enums.PaymentMethodCard:
		if creds.Card == nil {
			return Instrument{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid test card")
		}
		number := digitsOnly(creds.Card.Number)
		brand, ok := testCards[number]
		if !ok ||
			strings.ReplaceAll(strings.TrimSpace(creds.Card.Expiry), " ", "") != testCardExpiry ||
			strings.TrimSpace(creds.Card.CVV) != testCardCVV {
			return Instrument{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid test card")
		}
		return Instrument{CardBrand: &brand, CardLast4: number[len(number)-4:]}, nil
	case enums.PaymentMethodInstapay:
		number := digitsOnly(creds.WalletNumber)
		if number != testInstapayNumber {
			return Instrument{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid instapay number")
		}
		return Instrument{WalletLast4: number[len(number)-4:]}, nil
	case enums.PaymentMethodVodafoneCash:
		number := digitsOnly(creds.WalletNumber)
		if !isVodafoneWallet(number) {
			return Instrument{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid wallet number")
		}
		return Instrument{WalletLast4: number[len(number)-4:]}, nil
	default:
		return Instrument{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
}

func isVodafoneWallet(number string) bool {
	if len(number) != walletNumberLength || !strings.HasPrefix(number, vodafoneCashPrefix) {
		return false
	}
	for _, r := range number {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// digitsOnly drops spaces and dashes; anything else is kept so it fails the
// comparison.
func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}
