package inventory

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// IsLockedCategory reports whether categoryName is the limited edition
// category. Comparison ignores case and surrounding space.
func IsLockedCategory(lockedCategory, categoryName string) bool {
	return lockedCategory != "" && strings.EqualFold(strings.TrimSpace(categoryName), strings.TrimSpace(lockedCategory))
}

// IsLocked reports whether an existing product's stock grid is frozen.
func IsLocked(lockedCategory, categoryName string, exists, flagged bool) bool {
	return (exists && IsLockedCategory(lockedCategory, categoryName)) || flagged
}

// Snapshot is the stored stock state of a product.
type Snapshot struct {
	Variants    []VariantInput
	DirectStock int
}

// CheckLock compares a save against the stored state of a locked product and
// reports every change to the variant set or stock values.
func CheckLock(prior Snapshot, next StockInput) []pkgerrors.FieldError {
	var violations []pkgerrors.FieldError
	add := func(field, format string, args ...any) {
		violations = append(violations, pkgerrors.FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(prior.Variants) == 0 && len(next.Variants) == 0 {
		if prior.DirectStock != next.DirectStock {
			add("stock", "limited edition stock is locked at %d", prior.DirectStock)
		}
		return violations
	}

	stored := make(map[Key]int, len(prior.Variants))
	for _, v := range prior.Variants {
		stored[v.Key()] = v.Stock
	}

	kept := make(map[Key]bool, len(next.Variants))
	for i, v := range next.Variants {
		key := v.Key()
		kept[key] = true
		stock, ok := stored[key]
		if !ok {
			add(fmt.Sprintf("variants[%d]", i), "cannot add %s to a limited edition product", key)
			continue
		}
		if stock != v.Stock {
			add(fmt.Sprintf("variants[%d].stock", i), "limited edition stock for %s is locked at %d", key, stock)
		}
	}
	for _, v := range prior.Variants {
		if !kept[v.Key()] {
			add("variants", "cannot remove %s from a limited edition product", v.Key())
		}
	}
	return violations
}
