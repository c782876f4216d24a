package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// Order is a purchase. Version increases on every payment status change and
// guards concurrent admin updates.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Total           int64               `gorm:"column:total;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:PENDING;index"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:UNPAID"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	ShippingAddress string              `gorm:"column:shipping_address;not null"`
	Version         int                 `gorm:"column:version;not null;default:1"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User            *User               `gorm:"foreignKey:UserID"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// OrderItem snapshots the unit price and chosen variant at purchase time.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity  int       `gorm:"column:quantity;not null;check:order_items_quantity_check,quantity > 0"`
	Price     int64     `gorm:"column:price;not null"`
	Size      *string   `gorm:"column:size"`
	Color     *string   `gorm:"column:color"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
