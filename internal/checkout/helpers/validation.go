package helpers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// LineShape is the part of a cart line that can be checked without a
// database.
type LineShape struct {
	ProductID uuid.UUID
	Quantity  int
}

// ValidateLines reports malformed cart lines.
func ValidateLines(lines []LineShape) []pkgerrors.FieldError {
	if len(lines) == 0 {
		return []pkgerrors.FieldError{{Field: "items", Message: "cart contains no items"}}
	}
	var violations []pkgerrors.FieldError
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			violations = append(violations, pkgerrors.FieldError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "product id is required"})
		}
		if line.Quantity <= 0 {
			violations = append(violations, pkgerrors.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "quantity must be greater than 0"})
		}
	}
	return violations
}

// ValidatePaymentMethod normalizes the payment tag.
func ValidatePaymentMethod(value string) (enums.PaymentMethod, *pkgerrors.FieldError) {
	if strings.TrimSpace(value) == "" {
		return "", &pkgerrors.FieldError{Field: "payment_method", Message: "payment method is required"}
	}
	method, err := enums.ParsePaymentMethod(value)
	if err != nil {
		return "", &pkgerrors.FieldError{Field: "payment_method", Message: err.Error()}
	}
	return method, nil
}

// FormatAddress renders a saved address as the free-text shipping snapshot
// stored on the order.
func FormatAddress(a models.Address) string {
	return fmt.Sprintf("%s | %s\n%s, %s, %s, %s", a.Recipient, a.Phone, a.Street, a.City, a.Province, a.PostalCode)
}
