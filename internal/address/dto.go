package address

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/pkg/db/models"
)

// AddressInput is the payload for create and update.
type AddressInput struct {
	Label      string `json:"label" validate:"required,max=50"`
	Recipient  string `json:"recipient" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=30"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	IsDefault  bool   `json:"is_default"`
}

type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Label      string    `json:"label"`
	Recipient  string    `json:"recipient"`
	Phone      string    `json:"phone"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	Province   string    `json:"province"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toDTO(a models.Address) AddressDTO {
	return AddressDTO{
		ID:         a.ID,
		Label:      a.Label,
		Recipient:  a.Recipient,
		Phone:      a.Phone,
		Street:     a.Street,
		City:       a.City,
		Province:   a.Province,
		PostalCode: a.PostalCode,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

func apply(input AddressInput) models.Address {
	return models.Address{
		Label:      input.Label,
		Recipient:  input.Recipient,
		Phone:      input.Phone,
		Street:     input.Street,
		City:       input.City,
		Province:   input.Province,
		PostalCode: input.PostalCode,
	}
}
