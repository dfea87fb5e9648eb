package enums

import "fmt"

// ProductUnit defines how a product's quantity is counted.
type ProductUnit string

const (
	ProductUnitPcs   ProductUnit = "pcs"
	ProductUnitBoxes ProductUnit = "boxes"
)

var validProductUnits = []ProductUnit{
	ProductUnitPcs,
	ProductUnitBoxes,
}

// String implements fmt.Stringer.
func (u ProductUnit) String() string {
	return string(u)
}

// IsValid reports whether the value matches a known ProductUnit.
func (u ProductUnit) IsValid() bool {
	for _, candidate := range validProductUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseProductUnit converts raw input into a ProductUnit.
func ParseProductUnit(value string) (ProductUnit, error) {
	for _, candidate := range validProductUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product unit %q", value)
}
