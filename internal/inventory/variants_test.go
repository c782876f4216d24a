package inventory

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

func strPtr(s string) *string { return &s }

func hasViolation(violations []pkgerrors.FieldError, field, contains string) bool {
	for _, v := range violations {
		if v.Field == field && strings.Contains(v.Message, contains) {
			return true
		}
	}
	return false
}

func TestNormalize(t *testing.T) {
	got := Normalize(enums.ProductTypeAccessory, []VariantInput{
		{Name: " all ", Color: strPtr(" Black "), Stock: 2},
		{Name: "ALL", Color: strPtr("  "), Stock: 1},
	})
	if got[0].Name != AccessorySize || got[0].Color == nil || *got[0].Color != "Black" {
		t.Fatalf("unexpected first variant %+v", got[0])
	}
	if got[1].Color != nil {
		t.Fatalf("expected blank color to be dropped, got %q", *got[1].Color)
	}

	top := Normalize(enums.ProductTypeApparelTop, []VariantInput{{Name: "all"}})
	if top[0].Name != "all" {
		t.Fatalf("only accessories canonicalise ALL, got %q", top[0].Name)
	}
}

func TestAggregateStock(t *testing.T) {
	if got := AggregateStock(nil, 7); got != 7 {
		t.Fatalf("expected direct stock without variants, got %d", got)
	}
	variants := []VariantInput{{Name: "M", Stock: 5}, {Name: "L", Stock: 3}}
	if got := AggregateStock(variants, 100); got != 8 {
		t.Fatalf("expected variant sum 8, got %d", got)
	}
}

func TestValidateApparel(t *testing.T) {
	violations := Validate(StockInput{Type: enums.ProductTypeApparelTop, Creating: true})
	if !hasViolation(violations, "variants", "at least one size") {
		t.Fatalf("expected missing size violation, got %+v", violations)
	}
	if !hasViolation(violations, "stock", "greater than 0") {
		t.Fatalf("expected zero stock violation on create, got %+v", violations)
	}

	ok := Validate(StockInput{
		Type:     enums.ProductTypeApparelTop,
		Creating: true,
		Variants: []VariantInput{{Name: "M", Color: strPtr("Red"), Stock: 5}, {Name: "L", Color: strPtr("Red"), Stock: 3}},
	})
	if len(ok) != 0 {
		t.Fatalf("expected valid top, got %+v", ok)
	}
}

func TestValidateBottomSizesMustBeNumeric(t *testing.T) {
	violations := Validate(StockInput{
		Type:     enums.ProductTypeApparelBottom,
		Variants: []VariantInput{{Name: "30", Stock: 1}, {Name: "M", Stock: 1}},
	})
	if len(violations) != 1 || !hasViolation(violations, "variants[1].name", "numeric") {
		t.Fatalf("expected single numeric violation, got %+v", violations)
	}
}

func TestValidateAccessoryRequiresALL(t *testing.T) {
	// an accessory carrying a single Black variant with zero stock
	for _, creating := range []bool{true, false} {
		violations := Validate(StockInput{
			Type:     enums.ProductTypeAccessory,
			Creating: creating,
			Variants: []VariantInput{{Name: "ONE SIZE", Color: strPtr("Black"), Stock: 0}},
		})
		if !hasViolation(violations, "variants[0].name", `must be "ALL"`) {
			t.Fatalf("creating=%v: expected ALL violation, got %+v", creating, violations)
		}
	}

	direct := Validate(StockInput{Type: enums.ProductTypeAccessory, DirectStock: 4, Creating: true})
	if len(direct) != 0 {
		t.Fatalf("accessory without variants takes direct stock, got %+v", direct)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	violations := Validate(StockInput{
		Type: enums.ProductTypeApparelTop,
		Variants: []VariantInput{
			{Name: "", Stock: 1},
			{Name: "M", Stock: -2},
			{Name: "S", Color: strPtr("Red"), Stock: 1},
			{Name: "S", Color: strPtr("Red"), Stock: 2},
		},
	})
	for _, want := range []struct{ field, msg string }{
		{"variants[0].name", "required"},
		{"variants[1].stock", ">= 0"},
		{"variants[3]", "duplicates variants[2]"},
	} {
		if !hasViolation(violations, want.field, want.msg) {
			t.Fatalf("missing %s violation in %+v", want.field, violations)
		}
	}
	if hasViolation(violations, "stock", "greater than 0") {
		t.Fatalf("aggregate of 2 must not trip the positive stock rule: %+v", violations)
	}
}

func TestValidatePositiveStockOnEverySave(t *testing.T) {
	soldOut := []VariantInput{{Name: "M", Color: strPtr("Red"), Stock: 0}}
	for _, typ := range []enums.ProductType{enums.ProductTypeApparelTop, enums.ProductTypeApparelBottom} {
		variants := soldOut
		if typ == enums.ProductTypeApparelBottom {
			variants = []VariantInput{{Name: "30", Stock: 0}}
		}
		violations := Validate(StockInput{Type: typ, Variants: variants})
		if !hasViolation(violations, "stock", "greater than 0") {
			t.Fatalf("%s update with zero stock: expected violation, got %+v", typ, violations)
		}
	}

	if violations := Validate(StockInput{Type: enums.ProductTypeAccessory}); len(violations) != 0 {
		t.Fatalf("accessory update may reach zero stock, got %+v", violations)
	}
	if violations := Validate(StockInput{Type: enums.ProductTypeAccessory, Creating: true}); !hasViolation(violations, "stock", "greater than 0") {
		t.Fatalf("accessory create with zero stock: expected violation, got %+v", violations)
	}
}

func TestValidateUnknownType(t *testing.T) {
	violations := Validate(StockInput{Type: "hat"})
	if !hasViolation(violations, "type", "unknown") {
		t.Fatalf("expected type violation, got %+v", violations)
	}
}

func TestDefaultSizes(t *testing.T) {
	if got := DefaultSizes(enums.ProductTypeApparelBottom); len(got) != 8 || got[0] != "28" || got[7] != "36" {
		t.Fatalf("unexpected bottom grid %v", got)
	}
	top := DefaultSizes(enums.ProductTypeApparelTop)
	top[0] = "mutated"
	if DefaultSizes(enums.ProductTypeApparelTop)[0] != "XS" {
		t.Fatalf("DefaultSizes must return a copy")
	}
	if got := DefaultSizes(enums.ProductTypeAccessory); len(got) != 1 || got[0] != AccessorySize {
		t.Fatalf("unexpected accessory grid %v", got)
	}
}
