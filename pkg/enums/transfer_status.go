package enums

import "fmt"

// TransferStatus tracks ticket transfers between wallets.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "Pending"
	TransferStatusCompleted TransferStatus = "Completed"
	TransferStatusCancelled TransferStatus = "Cancelled"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusCompleted,
	TransferStatusCancelled,
}

// String implements fmt.Stringer.
func (v TransferStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known TransferStatus.
func (v TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
