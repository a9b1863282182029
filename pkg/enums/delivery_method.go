package enums

import "slices"

// DeliveryMethod maps to the delivery_method enum in Postgres.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodShipping DeliveryMethod = "shipping"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodPickup,
	DeliveryMethodShipping,
}

func (d DeliveryMethod) IsValid() bool {
	return slices.Contains(validDeliveryMethods, d)
}

func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return parseEnum(validDeliveryMethods, value, "delivery method")
}
