package enums

import "fmt"

// OrderStatus tracks where an order sits in the checkout lifecycle.
type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "Draft"
	OrderStatusPendingPayment OrderStatus = "PendingPayment"
	OrderStatusPaid           OrderStatus = "Paid"
	OrderStatusCancelled      OrderStatus = "Cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPendingPayment,
	OrderStatusPaid,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (v OrderStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known OrderStatus.
func (v OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into a OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

// IsTerminal reports whether no further status transitions are allowed.
func (v OrderStatus) IsTerminal() bool {
	return v == OrderStatusPaid || v == OrderStatusCancelled
}

// CanTransitionTo reports whether moving from v to next is a legal order
// lifecycle step.
func (v OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch v {
	case OrderStatusDraft:
		return next == OrderStatusPendingPayment || next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPendingPayment:
		return next == OrderStatusPaid || next == OrderStatusDraft
	default:
		return false
	}
}
