package enums

import "fmt"

// PaymentMethod describes how money reached the platform.
type PaymentMethod string

const (
	PaymentMethodExternal   PaymentMethod = "External"
	PaymentMethodCreditCard PaymentMethod = "CreditCard"
	PaymentMethodProvider   PaymentMethod = "Provider"
	PaymentMethodFree       PaymentMethod = "Free"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodExternal,
	PaymentMethodCreditCard,
	PaymentMethodProvider,
	PaymentMethodFree,
}

// String implements fmt.Stringer.
func (v PaymentMethod) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentMethod.
func (v PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
