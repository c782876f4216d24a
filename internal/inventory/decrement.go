package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Reasons a decrement line can fail.
const (
	ReasonProductNotFound   = "product_not_found"
	ReasonVariantNotFound   = "variant_not_found"
	ReasonVariantRequired   = "variant_required"
	ReasonVariantAmbiguous  = "variant_ambiguous"
	ReasonInsufficientStock = "insufficient_stock"
)

// DecrementRequest removes quantity units of a product, and of the variant
// selected by size and color when the product has variants.
type DecrementRequest struct {
	Line      int
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// DecrementResult reports the outcome of one request line.
type DecrementResult struct {
	Line        int        `json:"line"`
	ProductID   uuid.UUID  `json:"product_id"`
	VariantID   *uuid.UUID `json:"variant_id,omitempty"`
	Quantity    int        `json:"quantity"`
	Decremented bool       `json:"-"`
	Reason      string     `json:"reason,omitempty"`
	Available   int        `json:"available"`
	// ProductBalance is the aggregate product stock read back after a
	// successful decrement.
	ProductBalance int `json:"-"`
}

// Decrement applies guarded stock decrements inside tx. Every update is
// conditioned on stock >= quantity so concurrent orders can never drive stock
// negative. A failed line does not stop later lines from being evaluated; the
// caller is expected to roll tx back when any result is not Decremented.
func Decrement(ctx context.Context, tx *gorm.DB, requests []DecrementRequest) ([]DecrementResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	for _, req := range requests {
		if req.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
				WithDetails(map[string]any{"line": req.Line})
		}
		if req.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required").
				WithDetails(map[string]any{"line": req.Line})
		}
	}

	db := tx.WithContext(ctx)
	results := make([]DecrementResult, 0, len(requests))
	for _, req := range requests {
		res, err := decrementLine(db, req)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func decrementLine(db *gorm.DB, req DecrementRequest) (DecrementResult, error) {
	res := DecrementResult{Line: req.Line, ProductID: req.ProductID, Quantity: req.Quantity}

	var product models.Product
	if err := db.Select("id", "stock").Take(&product, "id = ?", req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res.Reason = ReasonProductNotFound
			return res, nil
		}
		return res, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product stock")
	}
	res.Available = product.Stock

	variant, reason, err := resolveVariant(db, req)
	if err != nil {
		return res, err
	}
	if reason != "" {
		res.Reason = reason
		return res, nil
	}

	if variant != nil {
		res.VariantID = &variant.ID
		res.Available = variant.Stock
		update := db.Model(&models.ProductVariant{}).
			Where("id = ? AND stock >= ?", variant.ID, req.Quantity).
			Update("stock", gorm.Expr("stock - ?", req.Quantity))
		if update.Error != nil {
			return res, pkgerrors.Wrap(pkgerrors.CodeDependency, update.Error, "decrement variant stock")
		}
		if update.RowsAffected == 0 {
			res.Reason = ReasonInsufficientStock
			return res, nil
		}
	}

	update := db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", req.ProductID, req.Quantity).
		Update("stock", gorm.Expr("stock - ?", req.Quantity))
	if update.Error != nil {
		return res, pkgerrors.Wrap(pkgerrors.CodeDependency, update.Error, "decrement product stock")
	}
	if update.RowsAffected == 0 {
		res.Reason = ReasonInsufficientStock
		res.Available = product.Stock
		return res, nil
	}

	res.Decremented = true
	if res.ProductBalance, err = stockAfter(db, &models.Product{}, req.ProductID); err != nil {
		return res, err
	}
	res.Available = res.ProductBalance
	if variant != nil {
		if res.Available, err = stockAfter(db, &models.ProductVariant{}, variant.ID); err != nil {
			return res, err
		}
	}
	return res, nil
}

func stockAfter(db *gorm.DB, model any, id uuid.UUID) (int, error) {
	var stock int
	if err := db.Model(model).Where("id = ?", id).Select("stock").Scan(&stock).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock balance")
	}
	return stock, nil
}

// resolveVariant finds the variant a line refers to. Products without
// variants resolve to nil with no reason.
func resolveVariant(db *gorm.DB, req DecrementRequest) (*models.ProductVariant, string, error) {
	var variants []models.ProductVariant
	if err := db.Where("product_id = ?", req.ProductID).Find(&variants).Error; err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	if len(variants) == 0 {
		return nil, "", nil
	}

	size := strings.TrimSpace(req.Size)
	color := strings.TrimSpace(req.Color)

	var matches []models.ProductVariant
	for _, v := range variants {
		switch {
		case size != "":
			if v.Name == size && v.ColorValue() == color {
				matches = append(matches, v)
			}
		case color != "":
			if v.ColorValue() == color {
				matches = append(matches, v)
			}
		default:
			matches = append(matches, v)
		}
	}

	switch {
	case len(matches) == 1:
		return &matches[0], "", nil
	case len(matches) == 0:
		return nil, ReasonVariantNotFound, nil
	case size == "" && color == "":
		return nil, ReasonVariantRequired, nil
	default:
		return nil, ReasonVariantAmbiguous, nil
	}
}

// Failed returns the results that were not applied.
func Failed(results []DecrementResult) []DecrementResult {
	var out []DecrementResult
	for _, r := range results {
		if !r.Decremented {
			out = append(out, r)
		}
	}
	return out
}

// RejectionError maps failed lines to the error returned to the buyer. Lines
// pointing at unknown products or variants are NOT_FOUND, lines that cannot
// pick a variant are VALIDATION_ERROR, everything else is a stock CONFLICT.
func RejectionError(failed []DecrementResult) error {
	if len(failed) == 0 {
		return nil
	}
	code := pkgerrors.CodeConflict
	message := "insufficient stock"
	for _, f := range failed {
		switch f.Reason {
		case ReasonProductNotFound, ReasonVariantNotFound:
			code, message = pkgerrors.CodeNotFound, fmt.Sprintf("line %d: %s", f.Line, strings.ReplaceAll(f.Reason, "_", " "))
		case ReasonVariantRequired, ReasonVariantAmbiguous:
			if code != pkgerrors.CodeNotFound {
				code, message = pkgerrors.CodeValidation, fmt.Sprintf("line %d: %s", f.Line, strings.ReplaceAll(f.Reason, "_", " "))
			}
		}
	}
	return pkgerrors.New(code, message).WithDetails(map[string]any{"lines": failed})
}
