package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/internal/inventory"
	"github.com/angelmondragon/storefront/internal/ledger"
	"github.com/angelmondragon/storefront/internal/orders"
	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront/pkg/db/types"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/pagination"
	"github.com/angelmondragon/storefront/pkg/slug"
)

const relatedLimit = 4

// Service exposes catalog management and browsing.
type Service interface {
	CreateProduct(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error
	ToggleFeatured(ctx context.Context, actor auth.Actor, productID uuid.UUID, featured bool) (*ProductDTO, error)
	GetBySlug(ctx context.Context, slug string) (*ProductDTO, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error)
	SizeGrid(productType string) (*SizeGridDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledgerRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, input ledger.RecordInput) (*models.StockLedgerEntry, error)
}

type service struct {
	repo       *Repository
	tx         txRunner
	ordersRepo orders.Repository
	ledger     ledgerRecorder
	catalog    config.CatalogConfig
	logg       *logger.Logger
}

// NewService constructs a product service instance.
func NewService(repo *Repository, tx txRunner, ordersRepo orders.Repository, ledgerSvc ledgerRecorder, catalog config.CatalogConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		ordersRepo: ordersRepo,
		ledger:     ledgerSvc,
		catalog:    catalog,
		logg:       logg,
	}, nil
}

// prepared is a validated editor payload.
type prepared struct {
	input ProductInput
	name  string
	stock inventory.StockInput
}

func prepare(input ProductInput, creating bool) (*prepared, error) {
	var violations []pkgerrors.FieldError
	name := strings.TrimSpace(input.Name)
	if name == "" {
		violations = append(violations, pkgerrors.FieldError{Field: "name", Message: "name is required"})
	}
	if !input.Price.Set {
		violations = append(violations, pkgerrors.FieldError{Field: "price", Message: "price is required"})
	} else if input.Price.Amount < 0 {
		violations = append(violations, pkgerrors.FieldError{Field: "price", Message: "price must be >= 0"})
	}
	if input.CategoryID == uuid.Nil {
		violations = append(violations, pkgerrors.FieldError{Field: "category_id", Message: "category is required"})
	}

	stock := inventory.StockInput{
		Type:        input.Type,
		Variants:    inventory.Normalize(input.Type, input.Variants),
		DirectStock: input.Stock,
		Creating:    creating,
	}
	violations = append(violations, inventory.Validate(stock)...)
	if len(violations) > 0 {
		return nil, pkgerrors.Validation("invalid product", violations)
	}
	return &prepared{input: input, name: name, stock: stock}, nil
}

// CreateProduct validates the editor payload and writes the product, its
// variants and their opening ledger entries in one transaction.
func (s *service) CreateProduct(ctx context.Context, actor auth.Actor, input ProductInput) (*ProductDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	in, err := prepare(input, true)
	if err != nil {
		return nil, err
	}

	var productID uuid.UUID
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		category, err := loadCategory(ctx, repo, in.input.CategoryID)
		if err != nil {
			return err
		}
		productSlug, err := s.uniqueSlug(ctx, repo, in.name, uuid.Nil)
		if err != nil {
			return err
		}

		product := &models.Product{
			Slug:        productSlug,
			Name:        in.name,
			Description: strings.TrimSpace(in.input.Description),
			Price:       in.input.Price.Amount,
			Stock:       inventory.AggregateStock(in.stock.Variants, in.stock.DirectStock),
			Type:        in.stock.Type,
			IsLocked:    inventory.IsLockedCategory(s.catalog.LockedCategory, category.Name) || in.input.IsLocked,
			IsFeatured:  in.input.IsFeatured,
			Images:      cleanList(in.input.Images),
			Colors:      cleanList(in.input.Colors),
			CategoryID:  category.ID,
		}
		if err := repo.CreateProduct(ctx, product); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		productID = product.ID

		if len(in.stock.Variants) == 0 {
			return s.recordAdjustment(ctx, tx, actor, product.ID, nil, product.Stock, product.Stock, "opening stock")
		}
		for _, v := range in.stock.Variants {
			variant := &models.ProductVariant{ProductID: product.ID, Name: v.Name, Color: v.Color, Stock: v.Stock}
			if err := repo.CreateVariant(ctx, variant); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert variant")
			}
			if err := s.recordAdjustment(ctx, tx, actor, product.ID, &variant.ID, v.Stock, v.Stock, "opening stock"); err != nil {
				return err
			}
		}
		return s.recordAdjustment(ctx, tx, actor, product.ID, nil, product.Stock, product.Stock, "opening stock")
	})
	if err != nil {
		return nil, err
	}

	dto, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, actor, dto, "product.created")
	return dto, nil
}

// UpdateProduct applies an editor save. The variant set is diffed against
// the stored rows; locked products reject any stock change.
func (s *service) UpdateProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID, input ProductInput) (*ProductDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	in, err := prepare(input, false)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		stored, err := repo.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		category, err := loadCategory(ctx, repo, in.input.CategoryID)
		if err != nil {
			return err
		}

		// Moving an existing product into the locked category freezes it in
		// the same save.
		storedCategory := ""
		if stored.Category != nil {
			storedCategory = stored.Category.Name
		}
		locked := inventory.IsLocked(s.catalog.LockedCategory, storedCategory, true, stored.IsLocked) ||
			inventory.IsLockedCategory(s.catalog.LockedCategory, category.Name)
		if locked {
			prior := inventory.Snapshot{Variants: inventory.FromModels(stored.Variants), DirectStock: stored.Stock}
			if violations := inventory.CheckLock(prior, in.stock); len(violations) > 0 {
				return pkgerrors.Validation("limited edition product is locked", violations)
			}
		}

		productSlug := stored.Slug
		if base := slug.Make(in.name); base != stored.Slug {
			if productSlug, err = s.uniqueSlug(ctx, repo, in.name, stored.ID); err != nil {
				return err
			}
		}

		stored.Slug = productSlug
		stored.Name = in.name
		stored.Description = strings.TrimSpace(in.input.Description)
		stored.Price = in.input.Price.Amount
		stored.Type = in.stock.Type
		stored.IsLocked = stored.IsLocked || inventory.IsLockedCategory(s.catalog.LockedCategory, category.Name) || in.input.IsLocked
		stored.IsFeatured = in.input.IsFeatured
		stored.Images = cleanList(in.input.Images)
		stored.Colors = cleanList(in.input.Colors)
		stored.CategoryID = category.ID
		if err := repo.UpdateProduct(ctx, stored); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}

		return s.applyStock(ctx, tx, repo, actor, stored, in.stock)
	})
	if err != nil {
		return nil, err
	}

	dto, err := s.load(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, actor, dto, "product.updated")
	return dto, nil
}

// applyStock diffs the stored variants against next by (name, color). Every
// write is conditioned on the stock value read at the start of the save so a
// concurrent checkout surfaces as a conflict instead of being overwritten.
func (s *service) applyStock(ctx context.Context, tx *gorm.DB, repo *Repository, actor auth.Actor, stored *models.Product, next inventory.StockInput) error {
	changed := pkgerrors.New(pkgerrors.CodeConflict, "stock changed while editing; reload and try again")

	existing := make(map[inventory.Key]models.ProductVariant, len(stored.Variants))
	for _, v := range stored.Variants {
		existing[inventory.VariantKey(v)] = v
	}

	kept := make(map[inventory.Key]bool, len(next.Variants))
	for _, v := range next.Variants {
		key := v.Key()
		kept[key] = true
		current, ok := existing[key]
		if !ok {
			variant := &models.ProductVariant{ProductID: stored.ID, Name: v.Name, Color: v.Color, Stock: v.Stock}
			if err := repo.CreateVariant(ctx, variant); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert variant")
			}
			if err := s.recordAdjustment(ctx, tx, actor, stored.ID, &variant.ID, v.Stock, v.Stock, "variant added "+key.String()); err != nil {
				return err
			}
			continue
		}
		if current.Stock == v.Stock {
			continue
		}
		ok, err := repo.SetVariantStock(ctx, current.ID, current.Stock, v.Stock)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant stock")
		}
		if !ok {
			return changed
		}
		variantID := current.ID
		if err := s.recordAdjustment(ctx, tx, actor, stored.ID, &variantID, v.Stock-current.Stock, v.Stock, "variant "+key.String()); err != nil {
			return err
		}
	}

	for key, current := range existing {
		if kept[key] {
			continue
		}
		ok, err := repo.DeleteVariant(ctx, current.ID, current.Stock)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete variant")
		}
		if !ok {
			return changed
		}
		variantID := current.ID
		if err := s.recordAdjustment(ctx, tx, actor, stored.ID, &variantID, -current.Stock, 0, "variant removed "+key.String()); err != nil {
			return err
		}
	}

	if len(next.Variants) > 0 {
		aggregate, err := repo.SyncAggregateStock(ctx, stored.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync aggregate stock")
		}
		return s.recordAdjustment(ctx, tx, actor, stored.ID, nil, aggregate-stored.Stock, aggregate, "aggregate stock")
	}

	if next.DirectStock == stored.Stock {
		return nil
	}
	ok, err := repo.SetDirectStock(ctx, stored.ID, stored.Stock, next.DirectStock)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	if !ok {
		return changed
	}
	return s.recordAdjustment(ctx, tx, actor, stored.ID, nil, next.DirectStock-stored.Stock, next.DirectStock, "direct stock")
}

func (s *service) recordAdjustment(ctx context.Context, tx *gorm.DB, actor auth.Actor, productID uuid.UUID, variantID *uuid.UUID, delta, balance int, note string) error {
	if delta == 0 {
		return nil
	}
	_, err := s.ledger.Record(ctx, tx, ledger.RecordInput{
		ProductID:    productID,
		VariantID:    variantID,
		ActorUserID:  actor.ActorPtr(),
		Type:         enums.LedgerEntryEditorAdjustment,
		Delta:        delta,
		BalanceAfter: balance,
		Note:         note,
	})
	return err
}

// DeleteProduct removes a product and its variants. Products that appear on
// an order are kept so order history stays intact.
func (s *service) DeleteProduct(ctx context.Context, actor auth.Actor, productID uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordered, err := s.ordersRepo.WithTx(tx).ProductHasOrders(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product orders")
		}
		if ordered {
			return pkgerrors.New(pkgerrors.CodeConflict, "product has orders and cannot be deleted")
		}
		deleted, err := s.repo.WithTx(tx).DeleteProduct(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
		}
		if !deleted {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithProductID(ctx, productID.String()), "product.deleted")
	}
	return nil
}

func (s *service) ToggleFeatured(ctx context.Context, actor auth.Actor, productID uuid.UUID, featured bool) (*ProductDTO, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	ok, err := s.repo.SetFeatured(ctx, productID, featured)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update featured flag")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.load(ctx, productID)
}

// GetBySlug returns a product with up to four related products from the
// same category.
func (s *service) GetBySlug(ctx context.Context, productSlug string) (*ProductDTO, error) {
	productSlug = strings.TrimSpace(productSlug)
	if productSlug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	product, err := s.repo.FindBySlug(ctx, productSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	dto := NewProductDTO(product)

	related, err := s.repo.ListRelated(ctx, product.CategoryID, product.ID, relatedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load related products")
	}
	dto.Related = make([]ProductDTO, len(related))
	for i := range related {
		dto.Related[i] = *NewProductDTO(&related[i])
	}
	return dto, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (pagination.Page[ProductDTO], error) {
	if filters.Type != nil && !filters.Type.IsValid() {
		return pagination.Page[ProductDTO]{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product type %q", *filters.Type))
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, filters, pagination.LimitWithBuffer(params.Limit), cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})

	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, len(page.Items)), NextCursor: page.NextCursor}
	for i := range page.Items {
		out.Items[i] = *NewProductDTO(&page.Items[i])
	}
	return out, nil
}

func (s *service) SizeGrid(productType string) (*SizeGridDTO, error) {
	parsed, err := enums.ParseProductType(strings.TrimSpace(productType))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product type")
	}
	return &SizeGridDTO{Type: string(parsed), Sizes: inventory.DefaultSizes(parsed)}, nil
}

func (s *service) load(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) uniqueSlug(ctx context.Context, repo *Repository, name string, exclude uuid.UUID) (string, error) {
	productSlug, err := slug.Unique(ctx, slug.Make(name), func(ctx context.Context, candidate string) (bool, error) {
		return repo.SlugTaken(ctx, candidate, exclude)
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "derive product slug")
	}
	return productSlug, nil
}

func loadCategory(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Category, error) {
	category, err := repo.FindCategory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
	}
	return category, nil
}

func cleanList(values []string) dbtypes.StringList {
	out := dbtypes.StringList{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *service) logInfo(ctx context.Context, actor auth.Actor, dto *ProductDTO, msg string) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithProductID(ctx, dto.ID.String())
	ctx = s.logg.WithUserID(ctx, actor.UserID.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"slug":     dto.Slug,
		"stock":    dto.Stock,
		"variants": len(dto.Variants),
		"locked":   dto.IsLocked,
	}), msg)
}
