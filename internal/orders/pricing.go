package orders

import (
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// ShippingFeeCents is the flat fee added to shipping orders (10.00 EGP).
	ShippingFeeCents int64 = 1000
	// Currency is the only currency the market settles in.
	Currency = "EGP"
)

var (
	depositRate = decimal.RequireFromString("0.25")
	maxCents    = decimal.NewFromInt(math.MaxInt64)

	errAmountTooLarge = errors.New("amount exceeds the representable range")
)

// DepositCents is 25% of total, rounded half away from zero to the cent.
func DepositCents(totalCents int64) int64 {
	return decimal.NewFromInt(totalCents).Mul(depositRate).Round(0).IntPart()
}

// LineTotalCents multiplies the unit price by the quantity. It fails instead
// of wrapping when the product does not fit in int64.
func LineTotalCents(unitPriceCents int64, quantity int) (int64, error) {
	line := decimal.NewFromInt(unitPriceCents).Mul(decimal.NewFromInt(int64(quantity)))
	return cents(line)
}

func cents(d decimal.Decimal) (int64, error) {
	if d.GreaterThan(maxCents) {
		return 0, errAmountTooLarge
	}
	return d.IntPart(), nil
}

// sellerPartition is the slice of a cart belonging to one seller.
type sellerPartition struct {
	SellerID   uuid.UUID
	SellerName string
	Items      []CartItem
}

// partitionBySeller groups cart items per seller, ordered by each seller's
// first appearance in the cart.
func partitionBySeller(items []CartItem) []sellerPartition {
	index := make(map[uuid.UUID]int)
	partitions := make([]sellerPartition, 0)
	for _, item := range items {
		pos, ok := index[item.SellerID]
		if !ok {
			pos = len(partitions)
			index[item.SellerID] = pos
			partitions = append(partitions, sellerPartition{SellerID: item.SellerID, SellerName: item.SellerName})
		}
		partitions[pos].Items = append(partitions[pos].Items, item)
	}
	return partitions
}

// partitionTotals returns the partition total (items plus any shipping fee)
// and, for pickup, the deposit.
func partitionTotals(p sellerPartition, shipping bool) (total int64, shippingFee *int64, deposit *int64, err error) {
	sum := decimal.Zero
	for _, item := range p.Items {
		sum = sum.Add(decimal.NewFromInt(item.UnitPriceCents).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	if shipping {
		fee := ShippingFeeCents
		sum = sum.Add(decimal.NewFromInt(fee))
		shippingFee = &fee
	}
	if total, err = cents(sum); err != nil {
		return 0, nil, nil, err
	}
	if !shipping {
		d := DepositCents(total)
		deposit = &d
	}
	return total, shippingFee, deposit, nil
}
