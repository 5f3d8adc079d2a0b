package enums

import "fmt"

// ExternalPaymentType tags payments collected outside the platform.
type ExternalPaymentType string

const (
	ExternalPaymentTypeCash       ExternalPaymentType = "Cash"
	ExternalPaymentTypeCreditCard ExternalPaymentType = "CreditCard"
	ExternalPaymentTypeVoucher    ExternalPaymentType = "Voucher"
)

var validExternalPaymentTypes = []ExternalPaymentType{
	ExternalPaymentTypeCash,
	ExternalPaymentTypeCreditCard,
	ExternalPaymentTypeVoucher,
}

// String implements fmt.Stringer.
func (v ExternalPaymentType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known ExternalPaymentType.
func (v ExternalPaymentType) IsValid() bool {
	for _, candidate := range validExternalPaymentTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseExternalPaymentType converts raw input into a ExternalPaymentType.
func ParseExternalPaymentType(value string) (ExternalPaymentType, error) {
	for _, candidate := range validExternalPaymentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid external payment type %q", value)
}
