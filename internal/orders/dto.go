package orders

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// OrderFilters describe the inputs supported by the admin orders list.
type OrderFilters struct {
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	// Query matches the order id prefix, buyer email or buyer name.
	Query string
}

// UpdateStatusInput targets either the fulfilment or the payment status.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Kind    enums.StatusKind
	Value   string
	Actor   auth.Actor
}

// UpdateStatusResult reports what an update actually changed.
type UpdateStatusResult struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Version       int                 `json:"version"`
	Changed       bool                `json:"changed"`
}

// soldAdjustment is the sold count movement of one product for one order.
type soldAdjustment struct {
	productID uuid.UUID
	quantity  int
}

func aggregateQuantities(items []itemQuantity) []soldAdjustment {
	index := make(map[uuid.UUID]int, len(items))
	var out []soldAdjustment
	for _, item := range items {
		if i, ok := index[item.productID]; ok {
			out[i].quantity += item.quantity
			continue
		}
		index[item.productID] = len(out)
		out = append(out, soldAdjustment{productID: item.productID, quantity: item.quantity})
	}
	return out
}

type itemQuantity struct {
	productID uuid.UUID
	quantity  int
}
