package enums

import "fmt"

// DomainEventType names an entry in the domain_events audit log.
type DomainEventType string

const (
	DomainEventOrderCreated             DomainEventType = "OrderCreated"
	DomainEventOrderUpdated             DomainEventType = "OrderUpdated"
	DomainEventOrderStatusUpdated       DomainEventType = "OrderStatusUpdated"
	DomainEventOrderCompleted           DomainEventType = "OrderCompleted"
	DomainEventOrderBehalfOfUserChanged DomainEventType = "OrderBehalfOfUserChanged"
	DomainEventPaymentCreated           DomainEventType = "PaymentCreated"
	DomainEventPaymentRefund            DomainEventType = "PaymentRefund"
	DomainEventTicketInstancePurchased  DomainEventType = "TicketInstancePurchased"
	DomainEventTicketInstanceReleased   DomainEventType = "TicketInstanceReleased"
	DomainEventTicketInstanceRedeemed   DomainEventType = "TicketInstanceRedeemed"
	DomainEventTicketInstanceNullified  DomainEventType = "TicketInstanceNullified"
)

var validDomainEventTypes = []DomainEventType{
	DomainEventOrderCreated,
	DomainEventOrderUpdated,
	DomainEventOrderStatusUpdated,
	DomainEventOrderCompleted,
	DomainEventOrderBehalfOfUserChanged,
	DomainEventPaymentCreated,
	DomainEventPaymentRefund,
	DomainEventTicketInstancePurchased,
	DomainEventTicketInstanceReleased,
	DomainEventTicketInstanceRedeemed,
	DomainEventTicketInstanceNullified,
}

// String implements fmt.Stringer.
func (v DomainEventType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DomainEventType.
func (v DomainEventType) IsValid() bool {
	for _, candidate := range validDomainEventTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDomainEventType converts raw input into a DomainEventType.
func ParseDomainEventType(value string) (DomainEventType, error) {
	for _, candidate := range validDomainEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid domain event type %q", value)
}
