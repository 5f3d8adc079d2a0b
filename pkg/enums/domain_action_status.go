package enums

import "fmt"

// DomainActionStatus tracks processing of a scheduled domain action.
type DomainActionStatus string

const (
	DomainActionStatusPending         DomainActionStatus = "Pending"
	DomainActionStatusRetriesExceeded DomainActionStatus = "RetriesExceeded"
	DomainActionStatusErrored         DomainActionStatus = "Errored"
	DomainActionStatusSuccess         DomainActionStatus = "Success"
	DomainActionStatusCancelled       DomainActionStatus = "Cancelled"
)

var validDomainActionStatuses = []DomainActionStatus{
	DomainActionStatusPending,
	DomainActionStatusRetriesExceeded,
	DomainActionStatusErrored,
	DomainActionStatusSuccess,
	DomainActionStatusCancelled,
}

// String implements fmt.Stringer.
func (v DomainActionStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known DomainActionStatus.
func (v DomainActionStatus) IsValid() bool {
	for _, candidate := range validDomainActionStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDomainActionStatus converts raw input into a DomainActionStatus.
func ParseDomainActionStatus(value string) (DomainActionStatus, error) {
	for _, candidate := range validDomainActionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid domain action status %q", value)
}
