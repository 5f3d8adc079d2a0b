package enums

import "fmt"

// TicketInstanceStatus is the inventory state of a single ticket.
type TicketInstanceStatus string

const (
	TicketInstanceStatusAvailable TicketInstanceStatus = "Available"
	TicketInstanceStatusReserved  TicketInstanceStatus = "Reserved"
	TicketInstanceStatusPurchased TicketInstanceStatus = "Purchased"
	TicketInstanceStatusRedeemed  TicketInstanceStatus = "Redeemed"
	TicketInstanceStatusNullified TicketInstanceStatus = "Nullified"
)

var validTicketInstanceStatuses = []TicketInstanceStatus{
	TicketInstanceStatusAvailable,
	TicketInstanceStatusReserved,
	TicketInstanceStatusPurchased,
	TicketInstanceStatusRedeemed,
	TicketInstanceStatusNullified,
}

// String implements fmt.Stringer.
func (v TicketInstanceStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TicketInstanceStatus.
func (v TicketInstanceStatus) IsValid() bool {
	for _, candidate := range validTicketInstanceStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTicketInstanceStatus converts raw input into a TicketInstanceStatus.
func ParseTicketInstanceStatus(value string) (TicketInstanceStatus, error) {
	for _, candidate := range validTicketInstanceStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket instance status %q", value)
}
