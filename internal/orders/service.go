package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/internal/ledger"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.StockLedgerEntry, error)
}

// TransitionRecorder observes applied status changes.
type TransitionRecorder interface {
	PaymentTransition(from, to string)
	StatusTransition(to string)
}

// Service defines order reads and admin status changes.
type Service interface {
	UpdateOrderStatus(ctx context.Context, input UpdateStatusInput) (*UpdateStatusResult, error)
	ListMyOrders(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[models.Order], error)
	ListOrders(ctx context.Context, actor auth.Actor, filters OrderFilters, params pagination.Params) (pagination.Page[models.Order], error)
	GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  ledgerRecorder
	metrics TransitionRecorder
	logg    *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, ledgerSvc ledgerRecorder, metrics TransitionRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return &service{
		repo:    repo,
		tx:      tx,
		ledger:  ledgerSvc,
		metrics: metrics,
		logg:    logg,
	}, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, input UpdateStatusInput) (*UpdateStatusResult, error) {
	if err := input.Actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	switch input.Kind {
	case enums.StatusKindOrder:
		next, err := enums.ParseOrderStatus(input.Value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
		}
		return s.updateFulfilment(ctx, input, next)
	case enums.StatusKindPayment:
		next, err := enums.ParsePaymentStatus(input.Value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status")
		}
		return s.updatePayment(ctx, input, next)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status kind %q", input.Kind))
	}
}

func (s *service) updateFulfilment(ctx context.Context, input UpdateStatusInput, next enums.OrderStatus) (*UpdateStatusResult, error) {
	var result *UpdateStatusResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		result = resultFor(order)
		if order.Status == next {
			return nil
		}
		if !order.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", order.Status, next)).
				WithDetails(map[string]any{"from": order.Status, "to": next})
		}

		ok, err := repo.CompareAndSetStatus(ctx, order.ID, order.Status, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
		}
		result.Status = next
		result.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Changed {
		s.metrics.StatusTransition(string(next))
		s.logInfo(ctx, input.OrderID, "order.status_updated", map[string]any{"status": next})
	}
	return result, nil
}

// updatePayment writes the payment status and the matching sold count
// movement in one transaction. The write is conditioned on the status read
// at the start, so two admins racing on the same order cannot both apply it.
func (s *service) updatePayment(ctx context.Context, input UpdateStatusInput, next enums.PaymentStatus) (*UpdateStatusResult, error) {
	var result *UpdateStatusResult
	var prior enums.PaymentStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		result = resultFor(order)
		prior = order.PaymentStatus
		if prior == next {
			return nil
		}

		ok, err := repo.CompareAndSetPaymentStatus(ctx, order.ID, prior, next)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment status changed concurrently")
		}
		result.PaymentStatus = next
		result.Version = order.Version + 1
		result.Changed = true

		sign := soldDirection(prior, next)
		if sign == 0 {
			return nil
		}
		entryType := enums.LedgerEntrySoldIncrement
		if sign < 0 {
			entryType = enums.LedgerEntrySoldDecrement
		}

		quantities := make([]itemQuantity, 0, len(order.Items))
		for _, item := range order.Items {
			quantities = append(quantities, itemQuantity{productID: item.ProductID, quantity: item.Quantity})
		}
		orderID := order.ID
		for _, adj := range aggregateQuantities(quantities) {
			delta := sign * adj.quantity
			sold, applied, err := repo.AdjustSoldCount(ctx, adj.productID, delta)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust sold count")
			}
			if !applied {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "sold count cannot be adjusted").
					WithDetails(map[string]any{"product_id": adj.productID, "delta": delta})
			}
			if _, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
				ProductID:    adj.productID,
				OrderID:      &orderID,
				ActorUserID:  input.Actor.ActorPtr(),
				Type:         entryType,
				Delta:        delta,
				BalanceAfter: sold,
				Note:         fmt.Sprintf("payment %s -> %s", prior, next),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Changed {
		s.metrics.PaymentTransition(string(prior), string(next))
		s.logInfo(ctx, input.OrderID, "order.payment_updated", map[string]any{"from": prior, "to": next})
	}
	return result, nil
}

// soldDirection is +1 when entering PAID, -1 when leaving it, 0 otherwise.
func soldDirection(prior, next enums.PaymentStatus) int {
	switch {
	case prior == next:
		return 0
	case next == enums.PaymentStatusPaid:
		return 1
	case prior == enums.PaymentStatusPaid:
		return -1
	}
	return 0
}

func (s *service) ListMyOrders(ctx context.Context, actor auth.Actor, params pagination.Params) (pagination.Page[models.Order], error) {
	if err := actor.RequireUser(); err != nil {
		return pagination.Page[models.Order]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, actor.UserID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.Trim(rows, params.Limit, orderCursor), nil
}

func (s *service) ListOrders(ctx context.Context, actor auth.Actor, filters OrderFilters, params pagination.Params) (pagination.Page[models.Order], error) {
	if err := actor.RequireAdmin(); err != nil {
		return pagination.Page[models.Order]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[models.Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.Trim(rows, params.Limit, orderCursor), nil
}

// GetOrder returns an order to its owner or to an admin. Orders owned by
// someone else are reported as missing.
func (s *service) GetOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*models.Order, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	order, err := s.repo.FindDetail(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func resultFor(order *models.Order) *UpdateStatusResult {
	return &UpdateStatusResult{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Version:       order.Version,
	}
}

func orderCursor(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

type noopRecorder struct{}

func (noopRecorder) PaymentTransition(string, string) {}
func (noopRecorder) StatusTransition(string)          {}
