package migrate

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"gorm.io/gorm"
)

// RequiredSchema lists the tables and columns the service reads and writes.
// Startup fails when any of them is missing instead of degrading at request
// time.
var RequiredSchema = map[string][]string{
	"users":                {"id", "email", "password_hash", "role"},
	"categories":           {"id", "name", "slug"},
	"products":             {"id", "slug", "name", "price", "stock", "sold_count", "type", "is_locked", "is_featured", "images", "colors", "category_id"},
	"product_variants":     {"id", "product_id", "name", "color", "stock"},
	"orders":               {"id", "user_id", "total", "status", "payment_status", "payment_method", "shipping_address", "version"},
	"order_items":          {"id", "order_id", "product_id", "quantity", "price", "size", "color"},
	"reviews":              {"id", "user_id", "product_id", "rating", "comment"},
	"addresses":            {"id", "user_id", "is_default"},
	"stock_ledger_entries": {"id", "product_id", "variant_id", "order_id", "type", "delta", "balance_after"},
}

// VerifySchema checks every required table and column and reports all
// missing items at once.
func VerifySchema(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	migrator := conn.WithContext(ctx).Migrator()

	var errs error
	for _, table := range requiredTables() {
		if !migrator.HasTable(table) {
			errs = multierr.Append(errs, fmt.Errorf("missing table %q", table))
			continue
		}
		for _, column := range RequiredSchema[table] {
			if !migrator.HasColumn(table, column) {
				errs = multierr.Append(errs, fmt.Errorf("missing column %s.%s", table, column))
			}
		}
	}
	if errs != nil {
		return fmt.Errorf("schema verification failed: %w", errs)
	}
	return nil
}

func requiredTables() []string {
	return []string{
		"users",
		"categories",
		"products",
		"product_variants",
		"orders",
		"order_items",
		"reviews",
		"addresses",
		"stock_ledger_entries",
	}
}
