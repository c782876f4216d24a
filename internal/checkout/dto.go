package checkout

import "github.com/google/uuid"

// LineInput is one cart line submitted at checkout.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	// Price is the unit price the buyer saw. When present it must match the
	// current catalog price.
	Price *int64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Size  string `json:"size,omitempty" validate:"omitempty,max=32"`
	Color string `json:"color,omitempty" validate:"omitempty,max=64"`
}

// CreateOrderInput is the checkout submission. Either ShippingAddress or
// AddressID must be set; AddressID wins when both are.
type CreateOrderInput struct {
	Items           []LineInput `json:"items" validate:"required,min=1,dive"`
	Total           *int64      `json:"total,omitempty" validate:"omitempty,gte=0"`
	ShippingAddress string      `json:"shipping_address" validate:"omitempty,max=1000"`
	AddressID       *uuid.UUID  `json:"address_id,omitempty"`
	PaymentMethod   string      `json:"payment_method" validate:"required"`
}
