package enums

import "fmt"

// PaymentStatus is the state recorded on an appended payment row.
type PaymentStatus string

const (
	PaymentStatusAuthorized          PaymentStatus = "Authorized"
	PaymentStatusCompleted           PaymentStatus = "Completed"
	PaymentStatusRequested           PaymentStatus = "Requested"
	PaymentStatusRefunded            PaymentStatus = "Refunded"
	PaymentStatusUnpaid              PaymentStatus = "Unpaid"
	PaymentStatusPendingConfirmation PaymentStatus = "PendingConfirmation"
	PaymentStatusCancelled           PaymentStatus = "Cancelled"
	PaymentStatusDraft               PaymentStatus = "Draft"
	PaymentStatusUnknown             PaymentStatus = "Unknown"
	PaymentStatusPendingIpn          PaymentStatus = "PendingIpn"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusAuthorized,
	PaymentStatusCompleted,
	PaymentStatusRequested,
	PaymentStatusRefunded,
	PaymentStatusUnpaid,
	PaymentStatusPendingConfirmation,
	PaymentStatusCancelled,
	PaymentStatusDraft,
	PaymentStatusUnknown,
	PaymentStatusPendingIpn,
}

// String implements fmt.Stringer.
func (v PaymentStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentStatus.
func (v PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
