package enums

import "fmt"

// CodeType distinguishes access codes from discount codes.
type CodeType string

const (
	CodeTypeAccess   CodeType = "Access"
	CodeTypeDiscount CodeType = "Discount"
)

var validCodeTypes = []CodeType{
	CodeTypeAccess,
	CodeTypeDiscount,
}

// String implements fmt.Stringer.
func (v CodeType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known CodeType.
func (v CodeType) IsValid() bool {
	for _, candidate := range validCodeTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCodeType converts raw input into a CodeType.
func ParseCodeType(value string) (CodeType, error) {
	for _, candidate := range validCodeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid code type %q", value)
}
