package enums

import "fmt"

// PriceType classifies a price table within the resolution waterfall.
type PriceType string

const (
	PriceTypeStandard  PriceType = "STANDARD"
	PriceTypeCustomer  PriceType = "CUSTOMER"
	PriceTypePromo     PriceType = "PROMO"
	PriceTypeWholesale PriceType = "WHOLESALE"
	PriceTypeSeasonal  PriceType = "SEASONAL"
)

var validPriceTypes = []PriceType{
	PriceTypeStandard,
	PriceTypeCustomer,
	PriceTypePromo,
	PriceTypeWholesale,
	PriceTypeSeasonal,
}

// String implements fmt.Stringer.
func (p PriceType) String() string {
	return string(p)
}

// IsValid reports whether the price type is recognized.
func (p PriceType) IsValid() bool {
	for _, candidate := range validPriceTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceType converts a raw string into a PriceType.
func ParsePriceType(value string) (PriceType, error) {
	for _, candidate := range validPriceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price type %q", value)
}
