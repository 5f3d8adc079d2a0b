package enums

import "fmt"

// PaymentProvider names the processor that settled a payment.
type PaymentProvider string

const (
	PaymentProviderExternal PaymentProvider = "External"
	PaymentProviderGlobee   PaymentProvider = "Globee"
	PaymentProviderStripe   PaymentProvider = "Stripe"
	PaymentProviderFree     PaymentProvider = "Free"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderExternal,
	PaymentProviderGlobee,
	PaymentProviderStripe,
	PaymentProviderFree,
}

// String implements fmt.Stringer.
func (v PaymentProvider) String() string {
	return string(v)
}

// IsValid reports whether the value is a known PaymentProvider.
func (v PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
