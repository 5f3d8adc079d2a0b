package enums

import "fmt"

// HoldType controls how a hold prices the inventory it carves out.
type HoldType string

const (
	HoldTypeDiscount HoldType = "Discount"
	HoldTypeComp     HoldType = "Comp"
)

var validHoldTypes = []HoldType{
	HoldTypeDiscount,
	HoldTypeComp,
}

// String implements fmt.Stringer.
func (v HoldType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known HoldType.
func (v HoldType) IsValid() bool {
	for _, candidate := range validHoldTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseHoldType converts raw input into a HoldType.
func ParseHoldType(value string) (HoldType, error) {
	for _, candidate := range validHoldTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold type %q", value)
}
