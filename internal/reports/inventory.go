// Package reports renders admin spreadsheets.
package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/storefront/pkg/auth"
	"github.com/angelmondragon/storefront/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const (
	productsSheet = "Products"
	variantsSheet = "Variants"
)

var (
	productHeader = []any{"slug", "name", "type", "category", "price", "stock", "sold", "locked", "revenue"}
	variantHeader = []any{"product_slug", "size", "color", "stock"}
)

// ContentType is the media type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type productLister interface {
	ListAll(ctx context.Context) ([]models.Product, error)
}

// Service builds the inventory workbook for administrators.
type Service struct {
	products productLister
	logg     *logger.Logger
}

func NewService(products productLister, logg *logger.Logger) (*Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product lister required")
	}
	return &Service{products: products, logg: logg}, nil
}

// InventoryWorkbook returns an XLSX with one row per product and one row per
// variant.
func (s *Service) InventoryWorkbook(ctx context.Context, actor auth.Actor) ([]byte, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	products, err := s.products.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	data, err := renderInventory(products)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render inventory workbook")
	}
	if s.logg != nil {
		logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
		s.logg.Info(s.logg.WithFields(logCtx, map[string]any{"products": len(products)}), "report.inventory")
	}
	return data, nil
}

func renderInventory(products []models.Product) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), productsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(variantsSheet); err != nil {
		return nil, err
	}
	if err := setRow(f, productsSheet, 1, productHeader); err != nil {
		return nil, err
	}
	if err := setRow(f, variantsSheet, 1, variantHeader); err != nil {
		return nil, err
	}

	variantRow := 2
	for i, p := range products {
		category := ""
		if p.Category != nil {
			category = p.Category.Name
		}
		revenue := decimal.NewFromInt(p.Price).Mul(decimal.NewFromInt(int64(p.SoldCount)))
		row := []any{p.Slug, p.Name, string(p.Type), category, p.Price, p.Stock, p.SoldCount, p.IsLocked, revenue.IntPart()}
		if err := setRow(f, productsSheet, i+2, row); err != nil {
			return nil, err
		}
		for _, v := range p.Variants {
			color := ""
			if v.Color != nil {
				color = *v.Color
			}
			if err := setRow(f, variantsSheet, variantRow, []any{p.Slug, v.Name, color, v.Stock}); err != nil {
				return nil, err
			}
			variantRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
