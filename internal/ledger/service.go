package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// Service records stock movements and reads them back for administrators.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.StockLedgerEntry, error)
	ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (pagination.Page[models.StockLedgerEntry], error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockLedgerEntry, error)
}

type service struct {
	repo Repository
}

// RecordInput captures the immutable data a ledger entry requires.
type RecordInput struct {
	ProductID    uuid.UUID
	VariantID    *uuid.UUID
	OrderID      *uuid.UUID
	ActorUserID  *uuid.UUID
	Type         enums.LedgerEntryType
	Delta        int
	BalanceAfter int
	Note         string
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// Record writes one entry. tx must be the transaction that applied the
// movement so the entry commits or rolls back with it.
func (s *service) Record(ctx context.Context, tx *gorm.DB, input RecordInput) (*models.StockLedgerEntry, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger entry requires a product id")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("invalid ledger entry type %q", input.Type))
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger entry delta must be non-zero")
	}

	entry := &models.StockLedgerEntry{
		ProductID:    input.ProductID,
		VariantID:    input.VariantID,
		OrderID:      input.OrderID,
		ActorUserID:  input.ActorUserID,
		Type:         input.Type,
		Delta:        input.Delta,
		BalanceAfter: input.BalanceAfter,
		Note:         input.Note,
	}
	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record ledger entry")
	}
	return entry, nil
}

func (s *service) ListByProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (pagination.Page[models.StockLedgerEntry], error) {
	if productID == uuid.Nil {
		return pagination.Page[models.StockLedgerEntry]{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.StockLedgerEntry]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListByProduct(ctx, productID, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[models.StockLedgerEntry]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return pagination.Trim(rows, params.Limit, entryCursor), nil
}

func (s *service) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockLedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order ledger entries")
	}
	return entries, nil
}

func entryCursor(e models.StockLedgerEntry) pagination.Cursor {
	return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}
