package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// AccessorySize is the only size name an accessory variant may carry.
const AccessorySize = "ALL"

// VariantInput is one (size, color) row submitted by the product editor.
type VariantInput struct {
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
	Stock int     `json:"stock"`
}

// Key identifies a variant within its product. An absent color is "".
type Key struct {
	Name  string
	Color string
}

func (k Key) String() string {
	if k.Color == "" {
		return k.Name
	}
	return k.Name + "/" + k.Color
}

func (v VariantInput) Key() Key {
	key := Key{Name: v.Name}
	if v.Color != nil {
		key.Color = *v.Color
	}
	return key
}

// VariantKey returns the key of a stored variant.
func VariantKey(v models.ProductVariant) Key {
	return Key{Name: v.Name, Color: v.ColorValue()}
}

// StockInput is the stock-bearing part of a product save.
type StockInput struct {
	Type        enums.ProductType
	Variants    []VariantInput
	DirectStock int
	Creating    bool
}

// Normalize trims names and colors, drops blank colors and canonicalises
// accessory sizes. It returns a new slice.
func Normalize(productType enums.ProductType, variants []VariantInput) []VariantInput {
	out := make([]VariantInput, 0, len(variants))
	for _, v := range variants {
		n := VariantInput{Name: strings.TrimSpace(v.Name), Stock: v.Stock}
		if v.Color != nil {
			if c := strings.TrimSpace(*v.Color); c != "" {
				n.Color = &c
			}
		}
		if productType == enums.ProductTypeAccessory && strings.EqualFold(n.Name, AccessorySize) {
			n.Name = AccessorySize
		}
		out = append(out, n)
	}
	return out
}

// AggregateStock is the product level stock: the variant sum when variants
// exist, otherwise the directly entered figure.
func AggregateStock(variants []VariantInput, direct int) int {
	if len(variants) == 0 {
		return direct
	}
	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	return total
}

// Validate checks the structural variant rules and returns every violation.
// Inputs are expected to be normalized.
func Validate(in StockInput) []pkgerrors.FieldError {
	var violations []pkgerrors.FieldError
	add := func(field, format string, args ...any) {
		violations = append(violations, pkgerrors.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !in.Type.IsValid() {
		add("type", "unknown product type %q", in.Type)
		return violations
	}

	if in.Type.IsApparel() && len(in.Variants) == 0 {
		add("variants", "%s products need at least one size", in.Type)
	}

	seen := make(map[Key]int, len(in.Variants))
	for i, v := range in.Variants {
		field := fmt.Sprintf("variants[%d]", i)
		if v.Name == "" {
			add(field+".name", "size is required")
		}
		if v.Stock < 0 {
			add(field+".stock", "stock must be >= 0")
		}
		switch in.Type {
		case enums.ProductTypeApparelBottom:
			if v.Name != "" && !isWaistSize(v.Name) {
				add(field+".name", "bottom sizes must be numeric, got %q", v.Name)
			}
		case enums.ProductTypeAccessory:
			if v.Name != AccessorySize {
				add(field+".name", "accessory size must be %q, got %q", AccessorySize, v.Name)
			}
		}
		if prev, dup := seen[v.Key()]; dup {
			add(field, "duplicates variants[%d] (%s)", prev, v.Key())
			continue
		}
		seen[v.Key()] = i
	}

	if len(in.Variants) == 0 && in.DirectStock < 0 {
		add("stock", "stock must be >= 0")
	}

	// Apparel must keep sellable stock on every save; accessories may be
	// edited down to zero once they exist.
	total := AggregateStock(in.Variants, in.DirectStock)
	if (in.Creating || in.Type.IsApparel()) && total <= 0 {
		add("stock", "total stock must be greater than 0")
	}

	return violations
}

func isWaistSize(name string) bool {
	n, err := strconv.Atoi(name)
	return err == nil && n > 0
}

// FromModels converts stored variants into editor inputs.
func FromModels(variants []models.ProductVariant) []VariantInput {
	out := make([]VariantInput, 0, len(variants))
	for _, v := range variants {
		in := VariantInput{Name: v.Name, Stock: v.Stock}
		if v.Color != nil {
			c := *v.Color
			in.Color = &c
		}
		out = append(out, in)
	}
	return out
}
