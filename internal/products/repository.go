package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"github.com/angelmondragon/storefront/pkg/pagination"
)

// editableColumns are the product columns an editor save may overwrite.
// Stock and sold_count only move through guarded updates.
var editableColumns = []string{
	"slug", "name", "description", "price", "type",
	"is_locked", "is_featured", "images", "colors", "category_id", "updated_at",
}

// Repository wires together all product-related persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func withVariants(db *gorm.DB) *gorm.DB {
	return db.Order("name ASC").Order("color ASC")
}

// FindByID loads the product with its category and variants.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", withVariants).
		Take(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySlug loads the product with its category and variants.
func (r *Repository) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", withVariants).
		Take(&product, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Take(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// SlugTaken reports whether another product already uses slug.
func (r *Repository) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var count int64
	qb := r.db.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if exclude != uuid.Nil {
		qb = qb.Where("id <> ?", exclude)
	}
	if err := qb.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateProduct inserts the product row only; variants are written by the
// caller so each gets its own ledger entry.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Category", "Variants").Create(product).Error
}

// UpdateProduct overwrites the editable columns of an existing product.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).
		Model(product).
		Select(editableColumns).
		Omit("Category", "Variants").
		Updates(product).Error
}

// DeleteProduct removes the product and its variants.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
		return false, err
	}
	res := db.Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetFeatured flips the featured flag. It reports false when no product matched.
func (r *Repository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_featured", featured)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// SetVariantStock moves a variant's stock from prior to next. It reports
// false when the stored value no longer equals prior.
func (r *Repository) SetVariantStock(ctx context.Context, id uuid.UUID, prior, next int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("id = ? AND stock = ?", id, prior).
		Update("stock", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// DeleteVariant removes a variant if its stock still equals prior.
func (r *Repository) DeleteVariant(ctx context.Context, id uuid.UUID, prior int) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND stock = ?", id, prior).
		Delete(&models.ProductVariant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetDirectStock moves the stock of a product without variants from prior to next.
func (r *Repository) SetDirectStock(ctx context.Context, id uuid.UUID, prior, next int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock = ?", id, prior).
		Update("stock", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SyncAggregateStock sets the product stock to the sum of its variants and
// returns the new value.
func (r *Repository) SyncAggregateStock(ctx context.Context, id uuid.UUID) (int, error) {
	db := r.db.WithContext(ctx)
	sum := db.Model(&models.ProductVariant{}).
		Select("COALESCE(SUM(stock), 0)").
		Where("product_id = ?", id)
	if err := db.Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock", sum).Error; err != nil {
		return 0, err
	}
	var product models.Product
	if err := db.Select("stock").Take(&product, "id = ?", id).Error; err != nil {
		return 0, err
	}
	return product.Stock, nil
}

// List returns one page of the public catalog, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, limit int, cursor *pagination.Cursor) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Preload("Category").
		Preload("Variants", withVariants)

	if slug := strings.TrimSpace(filters.CategorySlug); slug != "" {
		qb = qb.Joins("JOIN categories c ON c.id = products.category_id").Where("c.slug = ?", slug)
	}
	if filters.Featured != nil {
		qb = qb.Where("products.is_featured = ?", *filters.Featured)
	}
	if filters.Type != nil {
		qb = qb.Where("products.type = ?", *filters.Type)
	}
	if search := strings.TrimSpace(filters.Query); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", pattern, pattern)
	}
	if cursor != nil {
		qb = qb.Where("((products.created_at < ?) OR (products.created_at = ? AND products.id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Product
	if err := qb.Order("products.created_at DESC").Order("products.id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListRelated returns the newest products sharing categoryID, excluding one.
func (r *Repository) ListRelated(ctx context.Context, categoryID, exclude uuid.UUID, limit int) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("category_id = ? AND id <> ?", categoryID, exclude).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every product with its category and variants, ordered by
// name. Used by the inventory report.
func (r *Repository) ListAll(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Variants", withVariants).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
