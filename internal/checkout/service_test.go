package checkout

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/internal/ledger"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/dbtest"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type recorder struct {
	created  []int
	rejected []string
}

func (r *recorder) OrderCreated(units int)         { r.created = append(r.created, units) }
func (r *recorder) CheckoutRejected(reason string) { r.rejected = append(r.rejected, reason) }

type harness struct {
	db      *gorm.DB
	svc     Service
	metrics *recorder
	buyer   auth.Actor
	shirt   models.Product
	tote    models.Product
}

func newHarness(t *testing.T) harness {
	t.Helper()
	conn := dbtest.Open(t)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	metrics := &recorder{}
	svc, err := NewService(db.NewFromGorm(conn), NewRepository(conn), orders.NewRepository(conn), nil, ledgerSvc, metrics, nil)
	require.NoError(t, err)

	user := dbtest.User(t, conn, enums.RoleCustomer)
	category := dbtest.Category(t, conn, "Tops")
	red := "Red"
	shirt := dbtest.Product(t, conn, category, 150000, 0,
		models.ProductVariant{Name: "M", Color: &red, Stock: 5},
		models.ProductVariant{Name: "L", Color: &red, Stock: 3},
	)
	tote := dbtest.Product(t, conn, category, 50000, 4)

	return harness{
		db:      conn,
		svc:     svc,
		metrics: metrics,
		buyer:   auth.Actor{UserID: user.ID, Role: enums.RoleCustomer},
		shirt:   shirt,
		tote:    tote,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func (h harness) variantStock(t *testing.T, name string) int {
	t.Helper()
	var v models.ProductVariant
	require.NoError(t, h.db.Take(&v, "product_id = ? AND name = ?", h.shirt.ID, name).Error)
	return v.Stock
}

func (h harness) productStock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	require.NoError(t, h.db.Take(&p, "id = ?", id).Error)
	return p.Stock
}

func (h harness) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

func TestCreateOrderDecrementsVariantAndAggregate(t *testing.T) {
	h := newHarness(t)

	order, err := h.svc.CreateOrder(context.Background(), h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: h.shirt.ID, Quantity: 2, Price: int64Ptr(150000), Size: "M", Color: "Red"}},
		Total:           int64Ptr(300000),
		ShippingAddress: "Jl. Merdeka 1, Bandung",
		PaymentMethod:   "BANK_TRANSFER",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300000), order.Total)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusUnpaid, order.PaymentStatus)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "M", *order.Items[0].Size)
	assert.Equal(t, "Red", *order.Items[0].Color)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Equal(t, 6, h.productStock(t, h.shirt.ID))
	assert.Equal(t, 3, h.variantStock(t, "M"))
	assert.Equal(t, 3, h.variantStock(t, "L"))

	var entries []models.StockLedgerEntry
	require.NoError(t, h.db.Where("order_id = ?", order.ID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, enums.LedgerEntryOrderDecrement, e.Type)
		assert.Equal(t, -2, e.Delta)
		if e.VariantID != nil {
			assert.Equal(t, 3, e.BalanceAfter, "variant row balance")
		} else {
			assert.Equal(t, 6, e.BalanceAfter, "aggregate row balance")
		}
	}
	assert.Equal(t, []int{2}, h.metrics.created)
}

func TestCreateOrderRecomputesTotalWhenOmitted(t *testing.T) {
	h := newHarness(t)
	order, err := h.svc.CreateOrder(context.Background(), h.buyer, CreateOrderInput{
		Items: []LineInput{
			{ProductID: h.tote.ID, Quantity: 3},
			{ProductID: h.shirt.ID, Quantity: 1, Size: "L", Color: "Red"},
		},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "qris",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3*50000+150000), order.Total)
	assert.Equal(t, enums.PaymentMethodQRIS, order.PaymentMethod)
	assert.Equal(t, 1, h.productStock(t, h.tote.ID))
	assert.Nil(t, order.Items[0].Size)
}

func TestCreateOrderRejectsStaleCart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: h.tote.ID, Quantity: 1, Price: int64Ptr(40000)}},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "QRIS",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, "cart is stale", pkgerrors.As(err).Message())

	_, err = h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: h.tote.ID, Quantity: 1}},
		Total:           int64Ptr(1),
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "QRIS",
	})
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, int64(50000), details["expected_total"])

	assert.Zero(t, h.orderCount(t))
	assert.Equal(t, 4, h.productStock(t, h.tote.ID))
	assert.Equal(t, []string{reasonStaleCart, reasonStaleCart}, h.metrics.rejected)
}

func TestCreateOrderInsufficientStockRollsBackEverything(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateOrder(context.Background(), h.buyer, CreateOrderInput{
		Items: []LineInput{
			{ProductID: h.tote.ID, Quantity: 2},
			{ProductID: h.shirt.ID, Quantity: 4, Size: "L", Color: "Red"},
		},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "VA_BCA",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	assert.Zero(t, h.orderCount(t))
	var items int64
	require.NoError(t, h.db.Model(&models.OrderItem{}).Count(&items).Error)
	assert.Zero(t, items)
	assert.Equal(t, 4, h.productStock(t, h.tote.ID), "earlier lines roll back too")
	assert.Equal(t, 3, h.variantStock(t, "L"))
	assert.Equal(t, []string{reasonInsufficientStock}, h.metrics.rejected)
}

func TestCreateOrderSequentialCheckoutsCannotOversell(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	input := CreateOrderInput{
		Items:           []LineInput{{ProductID: h.shirt.ID, Quantity: 3, Size: "L", Color: "Red"}},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "BANK_TRANSFER",
	}

	_, err := h.svc.CreateOrder(ctx, h.buyer, input)
	require.NoError(t, err)
	_, err = h.svc.CreateOrder(ctx, h.buyer, input)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))

	assert.Equal(t, 0, h.variantStock(t, "L"))
	assert.Equal(t, 5, h.productStock(t, h.shirt.ID))
	assert.EqualValues(t, 1, h.orderCount(t))
}

func TestCreateOrderVariantResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: h.shirt.ID, Quantity: 1, Size: "XL", Color: "Red"}},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "QRIS",
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: h.shirt.ID, Quantity: 1}},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "QRIS",
	})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:           []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		ShippingAddress: "Jl. Merdeka 1",
		PaymentMethod:   "QRIS",
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Zero(t, h.orderCount(t))
}

func TestCreateOrderUsesSavedAddress(t *testing.T) {
	h := newHarness(t)
	address := models.Address{
		UserID:     h.buyer.UserID,
		Label:      "Home",
		Recipient:  "Sari",
		Phone:      "0812",
		Street:     "Jl. Merdeka 1",
		City:       "Bandung",
		Province:   "Jawa Barat",
		PostalCode: "40111",
		IsDefault:  true,
	}
	dbtest.Seed(t, h.db, &address)

	order, err := h.svc.CreateOrder(context.Background(), h.buyer, CreateOrderInput{
		Items:         []LineInput{{ProductID: h.tote.ID, Quantity: 1}},
		AddressID:     &address.ID,
		PaymentMethod: "VA_MANDIRI",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sari | 0812\nJl. Merdeka 1, Bandung, Jawa Barat, 40111", order.ShippingAddress)

	stranger := dbtest.User(t, h.db, enums.RoleCustomer)
	_, err = h.svc.CreateOrder(context.Background(), auth.Actor{UserID: stranger.ID, Role: enums.RoleCustomer}, CreateOrderInput{
		Items:         []LineInput{{ProductID: h.tote.ID, Quantity: 1}},
		AddressID:     &address.ID,
		PaymentMethod: "VA_MANDIRI",
	})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestCreateOrderValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateOrder(ctx, auth.Actor{}, CreateOrderInput{})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))

	_, err = h.svc.CreateOrder(ctx, h.buyer, CreateOrderInput{
		Items:         []LineInput{{ProductID: h.tote.ID, Quantity: 0}},
		PaymentMethod: "CASH",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	fields, ok := details["fields"].([]pkgerrors.FieldError)
	require.True(t, ok)
	assert.Len(t, fields, 3)
	assert.Equal(t, []string{reasonValidation}, h.metrics.rejected)
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, reasonStaleCart, rejectionReason(pkgerrors.New(pkgerrors.CodeConflict, "cart is stale")))
	assert.Equal(t, reasonInsufficientStock, rejectionReason(pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")))
	assert.Equal(t, reasonNotFound, rejectionReason(pkgerrors.New(pkgerrors.CodeNotFound, "x")))
	assert.Equal(t, reasonDependency, rejectionReason(assert.AnError))
}
