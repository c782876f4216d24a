package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindDetail(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	List(ctx context.Context, filters OrderFilters, limit int, cursor *pagination.Cursor) ([]models.Order, error)
	CompareAndSetStatus(ctx context.Context, orderID uuid.UUID, prior, next enums.OrderStatus) (bool, error)
	CompareAndSetPaymentStatus(ctx context.Context, orderID uuid.UUID, prior, next enums.PaymentStatus) (bool, error)
	AdjustSoldCount(ctx context.Context, productID uuid.UUID, delta int) (int, bool, error)
	UserHasOrderedProduct(ctx context.Context, userID, productID uuid.UUID) (bool, error)
	ProductHasOrders(ctx context.Context, productID uuid.UUID) (bool, error)
}
