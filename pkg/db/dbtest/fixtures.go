package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
)

// User seeds an account with the given role.
func User(t testing.TB, conn *gorm.DB, role enums.Role) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:           id,
		Name:         "User " + id.String()[:8],
		Email:        fmt.Sprintf("%s@example.com", id.String()[:8]),
		PasswordHash: "x",
		Role:         role,
	}
	Seed(t, conn, &user)
	return user
}

// Category seeds a category named name.
func Category(t testing.TB, conn *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{Name: name, Slug: fmt.Sprintf("cat-%s", uuid.NewString()[:8])}
	Seed(t, conn, &category)
	return category
}

// Product seeds a product in category with the supplied variants. Stock is
// the variant sum when variants are given.
func Product(t testing.TB, conn *gorm.DB, category models.Category, price int64, stock int, variants ...models.ProductVariant) models.Product {
	t.Helper()
	productType := enums.ProductTypeAccessory
	if len(variants) > 0 {
		productType = enums.ProductTypeApparelTop
		stock = 0
		for _, v := range variants {
			stock += v.Stock
		}
	}
	id := uuid.New()
	product := models.Product{
		ID:         id,
		Slug:       "product-" + id.String()[:8],
		Name:       "Product " + id.String()[:8],
		Price:      price,
		Stock:      stock,
		Type:       productType,
		CategoryID: category.ID,
	}
	Seed(t, conn, &product)
	for i := range variants {
		variants[i].ProductID = product.ID
		Seed(t, conn, &variants[i])
	}
	product.Variants = variants
	return product
}

// Order seeds an order for user with the given items.
func Order(t testing.TB, conn *gorm.DB, user models.User, payment enums.PaymentStatus, items ...models.OrderItem) models.Order {
	t.Helper()
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	order := models.Order{
		UserID:          user.ID,
		Total:           total,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   payment,
		PaymentMethod:   enums.PaymentMethodBankTransfer,
		ShippingAddress: "Jl. Merdeka 1, Jakarta",
		Version:         1,
		Items:           items,
	}
	Seed(t, conn, &order)
	return order
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
