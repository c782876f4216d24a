package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront/pkg/db/types"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// Product is a catalog listing. Stock is the aggregate of its variants when
// it has any.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Slug        string             `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Name        string             `gorm:"column:name;not null"`
	Description string             `gorm:"column:description;not null;default:''"`
	Price       int64              `gorm:"column:price;not null;check:products_price_check,price >= 0"`
	Stock       int                `gorm:"column:stock;not null;default:0;check:products_stock_check,stock >= 0"`
	SoldCount   int                `gorm:"column:sold_count;not null;default:0"`
	Type        enums.ProductType  `gorm:"column:type;type:text;not null"`
	IsLocked    bool               `gorm:"column:is_locked;not null;default:false"`
	IsFeatured  bool               `gorm:"column:is_featured;not null;default:false"`
	Images      dbtypes.StringList `gorm:"column:images;not null"`
	Colors      dbtypes.StringList `gorm:"column:colors;not null"`
	CategoryID  uuid.UUID          `gorm:"column:category_id;type:uuid;not null;index"`
	Category    *Category          `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Variants    []ProductVariant   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Images == nil {
		p.Images = dbtypes.StringList{}
	}
	if p.Colors == nil {
		p.Colors = dbtypes.StringList{}
	}
	return nil
}

// ProductVariant is one (size, color) cell of a product's stock grid.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_variants_key,priority:1"`
	Name      string    `gorm:"column:name;not null;uniqueIndex:product_variants_key,priority:2"`
	Color     *string   `gorm:"column:color;uniqueIndex:product_variants_key,priority:3"`
	Stock     int       `gorm:"column:stock;not null;default:0;check:product_variants_stock_check,stock >= 0"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// ColorValue returns the variant color, or "" when it has none.
func (v ProductVariant) ColorValue() string {
	if v.Color == nil {
		return ""
	}
	return *v.Color
}
