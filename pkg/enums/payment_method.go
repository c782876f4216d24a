package enums

import (
	"fmt"
	"strings"
)

// PaymentMethod is how the buyer intends to pay; settlement happens offline.
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodQRIS         PaymentMethod = "QRIS"
	PaymentMethodVABCA        PaymentMethod = "VA_BCA"
	PaymentMethodVAMandiri    PaymentMethod = "VA_MANDIRI"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodBankTransfer,
	PaymentMethodQRIS,
	PaymentMethodVABCA,
	PaymentMethodVAMandiri,
}

// IsValid reports whether the value is a known PaymentMethod.
func (m PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMethod converts raw input into a PaymentMethod. Matching is
// case-insensitive.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(value)))
	if !m.IsValid() {
		return "", fmt.Errorf("invalid payment method %q", value)
	}
	return m, nil
}
