package migrate

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/pkg/db/dbtest"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir(EmbeddedDir))

	entries, err := fs.ReadDir(Migrations, EmbeddedDir)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestProductMigrationContainsStockGuards(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(EmbeddedDir, "*_create_products_and_variants.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CONSTRAINT products_stock_check CHECK (stock >= 0)",
		"CONSTRAINT product_variants_stock_check CHECK (stock >= 0)",
		"UNIQUE NULLS NOT DISTINCT (product_id, name, color)",
		"REFERENCES products(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS product_variants",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestReviewMigrationEnforcesUniqueness(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join(EmbeddedDir, "*_create_reviews_addresses_ledger.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "CONSTRAINT reviews_user_product_key UNIQUE (user_id, product_id)")
	assert.Contains(t, string(data), "WHERE is_default")
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	err := ValidateDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid migration filename")
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Variant SKU!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_variant_sku.sql"))
	require.NoError(t, ValidateDir(dir))
}

func TestVerifySchema(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, VerifySchema(ctx, dbtest.Open(t)))

	err := VerifySchema(ctx, dbtest.OpenEmpty(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing table "orders"`)
	assert.Contains(t, err.Error(), `missing table "product_variants"`)
}

func TestVerifySchemaReportsMissingColumns(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, conn.Migrator().DropColumn("orders", "version"))

	err := VerifySchema(context.Background(), conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column orders.version")
}
