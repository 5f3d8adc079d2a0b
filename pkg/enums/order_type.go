package enums

import "fmt"

// OrderType distinguishes consumer carts from box office orders.
type OrderType string

const (
	OrderTypeCart       OrderType = "Cart"
	OrderTypeBackOffice OrderType = "BackOffice"
)

var validOrderTypes = []OrderType{
	OrderTypeCart,
	OrderTypeBackOffice,
}

// String implements fmt.Stringer.
func (v OrderType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderType.
func (v OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into a OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
