package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/internal/checkout/helpers"
	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/angelmondragon/storefront/internal/ledger"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Rejection reasons reported to metrics.
const (
	reasonValidation        = "validation"
	reasonNotFound          = "not_found"
	reasonStaleCart         = "stale_cart"
	reasonInsufficientStock = inventory.ReasonInsufficientStock
	reasonVariant           = "variant_unresolved"
	reasonDependency        = "dependency"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockDecrementer interface {
	Decrement(ctx context.Context, tx *gorm.DB, requests []inventory.DecrementRequest) ([]inventory.DecrementResult, error)
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.StockLedgerEntry, error)
}

// Recorder observes checkout outcomes.
type Recorder interface {
	OrderCreated(units int)
	CheckoutRejected(reason string)
}

type decrementEngine struct{}

func (decrementEngine) Decrement(ctx context.Context, tx *gorm.DB, requests []inventory.DecrementRequest) ([]inventory.DecrementResult, error) {
	return inventory.Decrement(ctx, tx, requests)
}

// Service commits carts into orders.
type Service interface {
	CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	ordersRepo orders.Repository
	stock      stockDecrementer
	ledger     ledgerRecorder
	metrics    Recorder
	logg       *logger.Logger
}

// NewService builds the checkout service. A nil decrementer uses the guarded
// inventory engine.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	stock stockDecrementer,
	ledgerSvc ledgerRecorder,
	metrics Recorder,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if stock == nil {
		stock = decrementEngine{}
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &service{
		tx:         tx,
		repo:       repo,
		ordersRepo: ordersRepo,
		stock:      stock,
		ledger:     ledgerSvc,
		metrics:    metrics,
		logg:       logg,
	}, nil
}

// CreateOrder prices the cart from the catalog, writes the order and its
// items, and removes the ordered units from stock, all in one transaction.
// Any rejected line rolls the whole order back.
func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.Order, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	method, err := s.validate(input)
	if err != nil {
		s.metrics.CheckoutRejected(reasonValidation)
		return nil, err
	}

	var order *models.Order
	var units int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipping := strings.TrimSpace(input.ShippingAddress)
		if input.AddressID != nil {
			address, err := repo.FindAddress(ctx, actor.UserID, *input.AddressID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
			}
			shipping = helpers.FormatAddress(*address)
		}

		ids := make([]uuid.UUID, 0, len(input.Items))
		for _, line := range input.Items {
			ids = append(ids, line.ProductID)
		}
		products, err := repo.LoadProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		prices := make(map[uuid.UUID]int64, len(products))
		for id, p := range products {
			prices[id] = p.Price
		}
		for i, line := range input.Items {
			if _, ok := products[line.ProductID]; !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("line %d: product not found", i)).
					WithDetails(map[string]any{"line": i, "product_id": line.ProductID})
			}
		}

		priced := make([]helpers.PricedLine, len(input.Items))
		for i, line := range input.Items {
			priced[i] = helpers.PricedLine{ProductID: line.ProductID, Quantity: line.Quantity, ClientPrice: line.Price}
		}
		quote := helpers.ComputeQuote(priced, prices)
		if len(quote.Stale) > 0 || !quote.TotalMatches(input.Total) {
			details := map[string]any{"expected_total": quote.Total}
			if len(quote.Stale) > 0 {
				details["lines"] = quote.Stale
			}
			if input.Total != nil {
				details["submitted_total"] = *input.Total
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "cart is stale").WithDetails(details)
		}

		order = &models.Order{
			UserID:          actor.UserID,
			Total:           quote.Total,
			Status:          enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusUnpaid,
			PaymentMethod:   method,
			ShippingAddress: shipping,
			Version:         1,
			Items:           make([]models.OrderItem, len(input.Items)),
		}
		for i, line := range input.Items {
			order.Items[i] = models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     quote.UnitPrices[i],
				Size:      optional(line.Size),
				Color:     optional(line.Color),
			}
		}
		if err := s.ordersRepo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		requests := make([]inventory.DecrementRequest, len(input.Items))
		for i, line := range input.Items {
			requests[i] = inventory.DecrementRequest{
				Line:      i,
				ProductID: line.ProductID,
				Size:      line.Size,
				Color:     line.Color,
				Quantity:  line.Quantity,
			}
		}
		results, err := s.stock.Decrement(ctx, tx, requests)
		if err != nil {
			return err
		}
		if failed := inventory.Failed(results); len(failed) > 0 {
			return inventory.RejectionError(failed)
		}

		// One entry per decremented row: the variant when the line has one,
		// and always the aggregate product row.
		orderID := order.ID
		for _, res := range results {
			entry := ledger.RecordInput{
				ProductID:   res.ProductID,
				OrderID:     &orderID,
				ActorUserID: actor.ActorPtr(),
				Type:        enums.LedgerEntryOrderDecrement,
				Delta:       -res.Quantity,
			}
			if res.VariantID != nil {
				variantEntry := entry
				variantEntry.VariantID = res.VariantID
				variantEntry.BalanceAfter = res.Available
				if _, err := s.ledger.Record(ctx, tx, variantEntry); err != nil {
					return err
				}
			}
			entry.BalanceAfter = res.ProductBalance
			if _, err := s.ledger.Record(ctx, tx, entry); err != nil {
				return err
			}
		}
		units = quote.Units
		return nil
	})
	if err != nil {
		s.metrics.CheckoutRejected(rejectionReason(err))
		return nil, err
	}

	s.metrics.OrderCreated(units)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
			"total": order.Total,
			"lines": len(order.Items),
			"units": units,
		}), "checkout.order_created")
	}
	return order, nil
}

func (s *service) validate(input CreateOrderInput) (enums.PaymentMethod, error) {
	shapes := make([]helpers.LineShape, len(input.Items))
	for i, line := range input.Items {
		shapes[i] = helpers.LineShape{ProductID: line.ProductID, Quantity: line.Quantity}
	}
	violations := helpers.ValidateLines(shapes)

	method, violation := helpers.ValidatePaymentMethod(input.PaymentMethod)
	if violation != nil {
		violations = append(violations, *violation)
	}
	if input.AddressID == nil && strings.TrimSpace(input.ShippingAddress) == "" {
		violations = append(violations, pkgerrors.FieldError{Field: "shipping_address", Message: "shipping address is required"})
	}
	if len(violations) > 0 {
		return "", pkgerrors.Validation("invalid checkout request", violations)
	}
	return method, nil
}

func rejectionReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return reasonDependency
	}
	switch typed.Code() {
	case pkgerrors.CodeNotFound:
		return reasonNotFound
	case pkgerrors.CodeValidation:
		return reasonVariant
	case pkgerrors.CodeConflict:
		if typed.Message() == "cart is stale" {
			return reasonStaleCart
		}
		return reasonInsufficientStock
	}
	return reasonDependency
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

type noopRecorder struct{}

func (noopRecorder) OrderCreated(int)        {}
func (noopRecorder) CheckoutRejected(string) {}
