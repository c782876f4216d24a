package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/dbtest"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

type fakeRepository struct {
	createFn func(ctx context.Context, entry *models.StockLedgerEntry) error
	txSeen   *gorm.DB
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	f.txSeen = tx
	return f
}

func (f *fakeRepository) Create(ctx context.Context, entry *models.StockLedgerEntry) error {
	if f.createFn != nil {
		return f.createFn(ctx, entry)
	}
	return nil
}

func (f *fakeRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.StockLedgerEntry, error) {
	return nil, nil
}

func (f *fakeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.StockLedgerEntry, error) {
	return nil, nil
}

func TestService_Record(t *testing.T) {
	repo := &fakeRepository{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	orderID := uuid.New()
	input := RecordInput{
		ProductID:    uuid.New(),
		OrderID:      &orderID,
		Type:         enums.LedgerEntryOrderDecrement,
		Delta:        -2,
		BalanceAfter: 6,
	}

	var created *models.StockLedgerEntry
	repo.createFn = func(ctx context.Context, entry *models.StockLedgerEntry) error {
		created = entry
		return nil
	}

	tx := &gorm.DB{}
	got, err := svc.Record(context.Background(), tx, input)
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if repo.txSeen != tx {
		t.Fatalf("expected entry to be written through the caller's transaction")
	}
	if created == nil || got != created {
		t.Fatalf("service should return the created entry")
	}
	if created.ProductID != input.ProductID || created.Delta != -2 || created.BalanceAfter != 6 || *created.OrderID != orderID {
		t.Fatalf("unexpected ledger entry data: %+v", created)
	}
}

func TestService_RecordValidation(t *testing.T) {
	svc, _ := NewService(&fakeRepository{})
	cases := []RecordInput{
		{Type: enums.LedgerEntrySoldIncrement, Delta: 1},
		{ProductID: uuid.New(), Type: "restock", Delta: 1},
		{ProductID: uuid.New(), Type: enums.LedgerEntrySoldIncrement},
	}
	for i, input := range cases {
		if _, err := svc.Record(context.Background(), nil, input); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestService_RecordRepoError(t *testing.T) {
	repo := &fakeRepository{createFn: func(context.Context, *models.StockLedgerEntry) error {
		return errors.New("boom")
	}}
	svc, _ := NewService(repo)
	_, err := svc.Record(context.Background(), nil, RecordInput{ProductID: uuid.New(), Type: enums.LedgerEntrySoldDecrement, Delta: -1})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewServiceRequiresRepo(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatalf("expected error for nil repository")
	}
}

func TestListByProductPaginates(t *testing.T) {
	db := dbtest.Open(t)
	category := models.Category{Name: "Tops", Slug: "tops"}
	dbtest.Seed(t, db, &category)
	product := models.Product{Slug: "tee", Name: "Tee", Price: 1000, Stock: 5, Type: enums.ProductTypeAccessory, CategoryID: category.ID}
	dbtest.Seed(t, db, &product)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		dbtest.Seed(t, db, &models.StockLedgerEntry{
			ProductID: product.ID,
			Type:      enums.LedgerEntryEditorAdjustment,
			Delta:     i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	dbtest.Seed(t, db, &models.StockLedgerEntry{ProductID: uuid.New(), Type: enums.LedgerEntryEditorAdjustment, Delta: 9})

	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)

	first, err := svc.ListByProduct(context.Background(), product.ID, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, 5, first.Items[0].Delta, "newest first")
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListByProduct(context.Background(), product.ID, pagination.Params{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Equal(t, 2, second.Items[0].Delta)
	assert.Equal(t, 1, second.Items[1].Delta)
	assert.Empty(t, second.NextCursor)

	_, err = svc.ListByProduct(context.Background(), product.ID, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	db := dbtest.Open(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	productID := uuid.New()

	rollback := errors.New("rollback")
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.Record(context.Background(), tx, RecordInput{ProductID: productID, Type: enums.LedgerEntrySoldIncrement, Delta: 3})
		require.NoError(t, err)
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	var count int64
	require.NoError(t, db.Model(&models.StockLedgerEntry{}).Where("product_id = ?", productID).Count(&count).Error)
	assert.Zero(t, count)
}
