package enums

import "fmt"

// LedgerEntryType classifies a stock movement.
type LedgerEntryType string

const (
	LedgerEntryOrderDecrement   LedgerEntryType = "order_decrement"
	LedgerEntrySoldIncrement    LedgerEntryType = "sold_increment"
	LedgerEntrySoldDecrement    LedgerEntryType = "sold_decrement"
	LedgerEntryEditorAdjustment LedgerEntryType = "editor_adjustment"
)

var validLedgerEntryTypes = []LedgerEntryType{
	LedgerEntryOrderDecrement,
	LedgerEntrySoldIncrement,
	LedgerEntrySoldDecrement,
	LedgerEntryEditorAdjustment,
}

// IsValid reports whether the value matches a known ledger entry type.
func (t LedgerEntryType) IsValid() bool {
	for _, candidate := range validLedgerEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEntryType converts raw input into LedgerEntryType.
func ParseLedgerEntryType(value string) (LedgerEntryType, error) {
	for _, candidate := range validLedgerEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger entry type %q", value)
}
