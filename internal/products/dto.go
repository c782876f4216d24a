package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// Price is an integer amount that decodes from a JSON number or from an
// editor string using "." as the thousands separator ("150.000").
type Price struct {
	Amount int64
	Set    bool
}

// NewPrice returns a set Price.
func NewPrice(amount int64) Price {
	return Price{Amount: amount, Set: true}
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}

	var amount int64
	var err error
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		amount, err = ParsePrice(raw)
	} else {
		amount, err = decimalToAmount(string(data))
	}
	if err != nil {
		return err
	}
	*p = NewPrice(amount)
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte("null"), nil
	}
	return json.Marshal(p.Amount)
}

// ParsePrice reads an editor price such as "150.000" or "75000".
func ParsePrice(raw string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	if cleaned == "" {
		return 0, fmt.Errorf("price is empty")
	}
	return decimalToAmount(cleaned)
}

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

func decimalToAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", raw)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("price %q must be a whole amount", raw)
	}
	if d.GreaterThan(maxAmount) || d.LessThan(minAmount) {
		return 0, fmt.Errorf("price %q is out of range", raw)
	}
	return d.IntPart(), nil
}

// ProductInput is the full editor payload for create and update.
type ProductInput struct {
	Name        string                   `json:"name" validate:"required,max=200"`
	Description string                   `json:"description" validate:"max=5000"`
	Price       Price                    `json:"price"`
	CategoryID  uuid.UUID                `json:"category_id" validate:"required"`
	Type        enums.ProductType        `json:"type" validate:"required"`
	Images      []string                 `json:"images" validate:"omitempty,dive,required,url"`
	Colors      []string                 `json:"colors" validate:"omitempty,dive,required"`
	Variants    []inventory.VariantInput `json:"variants" validate:"omitempty,dive"`
	Stock       int                      `json:"stock"`
	IsFeatured  bool                     `json:"is_featured"`
	IsLocked    bool                     `json:"is_locked"`
}

// ListFilters narrows the public catalog listing.
type ListFilters struct {
	CategorySlug string
	Featured     *bool
	Type         *enums.ProductType
	Query        string
}

type VariantDTO struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color *string   `json:"color,omitempty"`
	Stock int       `json:"stock"`
}

type CategorySummaryDTO struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProductDTO is the catalog representation returned to clients.
type ProductDTO struct {
	ID          uuid.UUID           `json:"id"`
	Slug        string              `json:"slug"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       int64               `json:"price"`
	Stock       int                 `json:"stock"`
	SoldCount   int                 `json:"sold_count"`
	Type        string              `json:"type"`
	IsLocked    bool                `json:"is_locked"`
	IsFeatured  bool                `json:"is_featured"`
	Images      []string            `json:"images"`
	Colors      []string            `json:"colors"`
	Category    *CategorySummaryDTO `json:"category,omitempty"`
	Variants    []VariantDTO        `json:"variants"`
	Related     []ProductDTO        `json:"related,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(product *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		Stock:       product.Stock,
		SoldCount:   product.SoldCount,
		Type:        string(product.Type),
		IsLocked:    product.IsLocked,
		IsFeatured:  product.IsFeatured,
		Images:      append([]string{}, product.Images...),
		Colors:      append([]string{}, product.Colors...),
		Variants:    make([]VariantDTO, len(product.Variants)),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	if product.Category != nil {
		dto.Category = &CategorySummaryDTO{
			ID:   product.Category.ID,
			Name: product.Category.Name,
			Slug: product.Category.Slug,
		}
	}
	for i, v := range product.Variants {
		dto.Variants[i] = VariantDTO{ID: v.ID, Name: v.Name, Color: v.Color, Stock: v.Stock}
	}
	return dto
}

// SizeGridDTO lists the default sizes offered for a product type.
type SizeGridDTO struct {
	Type  string   `json:"type"`
	Sizes []string `json:"sizes"`
}
