package enums

import "fmt"

// StatusKind selects which status field an admin update targets.
type StatusKind string

const (
	StatusKindOrder   StatusKind = "order"
	StatusKindPayment StatusKind = "payment"
)

// ParseStatusKind converts raw input into a StatusKind.
func ParseStatusKind(value string) (StatusKind, error) {
	switch StatusKind(value) {
	case StatusKindOrder, StatusKindPayment:
		return StatusKind(value), nil
	}
	return "", fmt.Errorf("invalid status kind %q", value)
}
