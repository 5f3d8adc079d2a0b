package enums

import "fmt"

// DomainActionType names asynchronous work scheduled alongside a domain event.
type DomainActionType string

const (
	DomainActionSendPurchaseCompletedCommunication DomainActionType = "SendPurchaseCompletedCommunication"
)

var validDomainActionTypes = []DomainActionType{
	DomainActionSendPurchaseCompletedCommunication,
}

// String implements fmt.Stringer.
func (v DomainActionType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DomainActionType.
func (v DomainActionType) IsValid() bool {
	for _, candidate := range validDomainActionTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDomainActionType converts raw input into a DomainActionType.
func ParseDomainActionType(value string) (DomainActionType, error) {
	for _, candidate := range validDomainActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid domain action type %q", value)
}
