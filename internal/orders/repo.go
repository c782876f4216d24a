package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Take(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("User").
		Take(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	qb := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("orders.user_id = ?", userID)
	return r.page(qb, limit, cursor)
}

func (r *repository) List(ctx context.Context, filters OrderFilters, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	qb := r.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Joins("JOIN users u ON u.id = orders.user_id")

	if filters.Status != nil {
		qb = qb.Where("orders.status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		qb = qb.Where("orders.payment_status = ?", *filters.PaymentStatus)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(u.email) LIKE ? OR LOWER(u.name) LIKE ? OR CAST(orders.id AS TEXT) LIKE ?)",
			pattern, pattern, strings.ToLower(search)+"%")
	}
	return r.page(qb, limit, cursor)
}

func (r *repository) page(qb *gorm.DB, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	if cursor != nil {
		qb = qb.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var orders []models.Order
	if err := qb.Order("orders.created_at DESC").Order("orders.id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// CompareAndSetStatus moves status from prior to next. It reports false when
// another writer changed the status first.
func (r *repository) CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, prior, next enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, prior).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CompareAndSetPaymentStatus moves payment_status from prior to next and
// bumps the order version.
func (r *repository) CompareAndSetPaymentStatus(ctx context.Context, orderID uuid.UUID, prior, next enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, prior).
		Updates(map[string]any{
			"payment_status": next,
			"version":        gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AdjustSoldCount applies delta to a product's sold count and returns the new
// value. Negative deltas never take the counter below zero; ok is false when
// the guard rejected the update.
func (r *repository) AdjustSoldCount(ctx context.Context, productID uuid.UUID, delta int) (int, bool, error) {
	db := r.db.WithContext(ctx)
	qb := db.Model(&models.Product{}).Where("id = ?", productID)
	if delta < 0 {
		qb = qb.Where("sold_count >= ?", -delta)
	}
	res := qb.Update("sold_count", gorm.Expr("sold_count + ?", delta))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var sold int
	if err := db.Model(&models.Product{}).Where("id = ?", productID).Select("sold_count").Scan(&sold).Error; err != nil {
		return 0, false, err
	}
	return sold, true, nil
}

func (r *repository) UserHasOrderedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var item models.OrderItem
	err := r.db.WithContext(ctx).
		Select("order_items.id").
		Joins("JOIN orders o ON o.id = order_items.order_id").
		Where("o.user_id = ? AND order_items.product_id = ?", userID, productID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *repository) ProductHasOrders(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_id = ?", productID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
