package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// StockLedgerEntry records an immutable stock or sold-count movement. Entries
// are written in the same transaction as the movement they describe.
type StockLedgerEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index"`
	VariantID   *uuid.UUID            `gorm:"column:variant_id;type:uuid"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;index"`
	ActorUserID *uuid.UUID            `gorm:"column:actor_user_id;type:uuid"`
	Type        enums.LedgerEntryType `gorm:"column:type;type:text;not null"`
	Delta       int                   `gorm:"column:delta;not null"`
	// BalanceAfter is the affected counter after the movement: stock for
	// decrements and adjustments, sold count for sold entries.
	BalanceAfter int       `gorm:"column:balance_after;not null;default:0"`
	Note         string    `gorm:"column:note;not null;default:''"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (e *StockLedgerEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
