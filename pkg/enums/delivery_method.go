package enums

import "fmt"

// DeliveryMethod identifies who operates the courier fleet for an order.
// Required when the order type is delivery, absent for pickup.
type DeliveryMethod string

const (
	DeliveryMethodRestaurantFleet DeliveryMethod = "restaurant_fleet"
	DeliveryMethodPlatformFleet   DeliveryMethod = "platform_fleet"
)

var validDeliveryMethods = []DeliveryMethod{
	DeliveryMethodRestaurantFleet,
	DeliveryMethodPlatformFleet,
}

// String implements fmt.Stringer.
func (m DeliveryMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known DeliveryMethod.
func (m DeliveryMethod) IsValid() bool {
	for _, candidate := range validDeliveryMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseDeliveryMethod converts raw input into a DeliveryMethod.
func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	for _, candidate := range validDeliveryMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery method %q", value)
}
