package enums

import "fmt"

// ProductType decides which variant grid a product carries.
type ProductType string

const (
	ProductTypeApparelTop    ProductType = "apparel_top"
	ProductTypeApparelBottom ProductType = "apparel_bottom"
	ProductTypeAccessory     ProductType = "accessory"
)

var validProductTypes = []ProductType{
	ProductTypeApparelTop,
	ProductTypeApparelBottom,
	ProductTypeAccessory,
}

// String implements fmt.Stringer.
func (t ProductType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ProductType.
func (t ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsApparel reports whether the type requires sized variants.
func (t ProductType) IsApparel() bool {
	return t == ProductTypeApparelTop || t == ProductTypeApparelBottom
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
