package inventory

import "github.com/angelmondragon/storefront/pkg/enums"

var defaultSizes = map[enums.ProductType][]string{
	enums.ProductTypeApparelTop:    {"XS", "S", "M", "L", "XL", "XXL"},
	enums.ProductTypeApparelBottom: {"28", "29", "30", "31", "32", "33", "34", "36"},
	enums.ProductTypeAccessory:     {AccessorySize},
}

// DefaultSizes returns the size grid the product editor starts from.
func DefaultSizes(productType enums.ProductType) []string {
	sizes := defaultSizes[productType]
	out := make([]string, len(sizes))
	copy(out, sizes)
	return out
}
