package enums

import "fmt"

// CartItemStatus explains why a cart line can no longer be purchased.
type CartItemStatus string

const (
	CartItemStatusCodeExpired       CartItemStatus = "CodeExpired"
	CartItemStatusHoldExpired       CartItemStatus = "HoldExpired"
	CartItemStatusTicketNullified   CartItemStatus = "TicketNullified"
	CartItemStatusTicketNotReserved CartItemStatus = "TicketNotReserved"
	CartItemStatusValid             CartItemStatus = "Valid"
)

var validCartItemStatuses = []CartItemStatus{
	CartItemStatusCodeExpired,
	CartItemStatusHoldExpired,
	CartItemStatusTicketNullified,
	CartItemStatusTicketNotReserved,
	CartItemStatusValid,
}

// String implements fmt.Stringer.
func (v CartItemStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CartItemStatus.
func (v CartItemStatus) IsValid() bool {
	for _, candidate := range validCartItemStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCartItemStatus converts raw input into a CartItemStatus.
func ParseCartItemStatus(value string) (CartItemStatus, error) {
	for _, candidate := range validCartItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart item status %q", value)
}
