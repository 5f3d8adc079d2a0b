package enums

import "fmt"

// TicketPricingStatus marks whether a pricing window can be sold.
type TicketPricingStatus string

const (
	TicketPricingStatusPublished TicketPricingStatus = "Published"
	TicketPricingStatusDeleted   TicketPricingStatus = "Deleted"
	TicketPricingStatusDefault   TicketPricingStatus = "Default"
)

var validTicketPricingStatuses = []TicketPricingStatus{
	TicketPricingStatusPublished,
	TicketPricingStatusDeleted,
	TicketPricingStatusDefault,
}

// String implements fmt.Stringer.
func (v TicketPricingStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TicketPricingStatus.
func (v TicketPricingStatus) IsValid() bool {
	for _, candidate := range validTicketPricingStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTicketPricingStatus converts raw input into a TicketPricingStatus.
func ParseTicketPricingStatus(value string) (TicketPricingStatus, error) {
	for _, candidate := range validTicketPricingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket pricing status %q", value)
}
