package enums

import "fmt"

// OrderItemType is the closed set of order line kinds. Ticket lines own at
// most one PerUnitFees child and one Discount child; EventFees lines stand
// alone per event.
type OrderItemType string

const (
	OrderItemTypeTickets     OrderItemType = "Tickets"
	OrderItemTypePerUnitFees OrderItemType = "PerUnitFees"
	OrderItemTypeEventFees   OrderItemType = "EventFees"
	OrderItemTypeDiscount    OrderItemType = "Discount"
)

var validOrderItemTypes = []OrderItemType{
	OrderItemTypeTickets,
	OrderItemTypePerUnitFees,
	OrderItemTypeEventFees,
	OrderItemTypeDiscount,
}

// String implements fmt.Stringer.
func (v OrderItemType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderItemType.
func (v OrderItemType) IsValid() bool {
	for _, candidate := range validOrderItemTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// IsChild reports whether lines of this kind hang off a Tickets parent.
func (v OrderItemType) IsChild() bool {
	switch v {
	case OrderItemTypePerUnitFees, OrderItemTypeDiscount:
		return true
	case OrderItemTypeTickets, OrderItemTypeEventFees:
		return false
	default:
		panic(fmt.Sprintf("unhandled order item type %q", string(v)))
	}
}

// ParseOrderItemType converts raw input into an OrderItemType.
func ParseOrderItemType(value string) (OrderItemType, error) {
	for _, candidate := range validOrderItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item type %q", value)
}
