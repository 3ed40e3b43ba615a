package enums

import "fmt"

// SurchargeType selects the calculation formula for a surcharge.
type SurchargeType string

const (
	SurchargeTypeFixed   SurchargeType = "FIXED"
	SurchargeTypePercent SurchargeType = "PERCENT"
	SurchargeTypePerM2   SurchargeType = "PER_M2"
	SurchargeTypePerMB   SurchargeType = "PER_MB"
	SurchargeTypePerKG   SurchargeType = "PER_KG"
	SurchargeTypePerUnit SurchargeType = "PER_UNIT"
	SurchargeTypeTiered  SurchargeType = "TIERED"
)

var validSurchargeTypes = []SurchargeType{
	SurchargeTypeFixed,
	SurchargeTypePercent,
	SurchargeTypePerM2,
	SurchargeTypePerMB,
	SurchargeTypePerKG,
	SurchargeTypePerUnit,
	SurchargeTypeTiered,
}

// String implements fmt.Stringer.
func (s SurchargeType) String() string {
	return string(s)
}

// IsValid reports whether the surcharge type is recognized.
func (s SurchargeType) IsValid() bool {
	for _, candidate := range validSurchargeTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPerMeasure reports whether the type multiplies a rate by a measured
// quantity (area, length, weight, or unit count).
func (s SurchargeType) IsPerMeasure() bool {
	switch s {
	case SurchargeTypePerM2, SurchargeTypePerMB, SurchargeTypePerKG, SurchargeTypePerUnit:
		return true
	default:
		return false
	}
}

// ParseSurchargeType converts a raw string into a SurchargeType.
func ParseSurchargeType(value string) (SurchargeType, error) {
	for _, candidate := range validSurchargeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid surcharge type %q", value)
}
