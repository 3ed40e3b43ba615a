package pricing

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
)

func setupPricingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  base_price TEXT NOT NULL DEFAULT '0',
  vat_rate TEXT,
  category_code TEXT,
  unit TEXT NOT NULL DEFAULT 'pcs',
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, sku)
);`, `
CREATE TABLE IF NOT EXISTS price_categories (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  parent_id TEXT,
  default_discount_percent TEXT NOT NULL DEFAULT '0',
  is_active INTEGER NOT NULL DEFAULT 1,
  sort_order INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, code)
);`, `
CREATE TABLE IF NOT EXISTS price_tables (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  category_id TEXT,
  currency TEXT NOT NULL DEFAULT 'PLN',
  valid_from DATETIME,
  valid_to DATETIME,
  priority INTEGER NOT NULL DEFAULT 0,
  price_type TEXT NOT NULL DEFAULT 'STANDARD',
  is_default INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, code)
);`, `
CREATE TABLE IF NOT EXISTS price_table_entries (
  id TEXT PRIMARY KEY,
  table_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  price_net TEXT NOT NULL,
  price_gross TEXT NOT NULL,
  vat_rate TEXT NOT NULL,
  promo_price TEXT,
  promo_valid_from DATETIME,
  promo_valid_to DATETIME,
  min_quantity INTEGER NOT NULL DEFAULT 1,
  max_quantity INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (table_id, product_id, min_quantity)
);`, `
CREATE TABLE IF NOT EXISTS customer_pricing (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  price_table_id TEXT,
  price_category_code TEXT,
  discount_percent TEXT NOT NULL DEFAULT '0',
  credit_limit TEXT,
  payment_term_days INTEGER,
  valid_from DATETIME,
  valid_to DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedTable(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, code string, isDefault bool, priority int) *models.PriceTable {
	t.Helper()

	table := &models.PriceTable{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Code:      code,
		Name:      "Table " + code,
		Currency:  enums.CurrencyPLN,
		Priority:  priority,
		PriceType: enums.PriceTypeStandard,
		IsDefault: isDefault,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(table).Error)
	return table
}

func seedEntry(t *testing.T, conn *gorm.DB, tableID, productID uuid.UUID, net string, minQty int, maxQty *int) *models.PriceTableEntry {
	t.Helper()

	netDec := decimal.RequireFromString(net)
	entry := &models.PriceTableEntry{
		ID:          uuid.New(),
		TableID:     tableID,
		ProductID:   productID,
		PriceNet:    netDec,
		PriceGross:  netDec.Mul(decimal.RequireFromString("1.23")).Round(2),
		VATRate:     decimal.NewFromInt(23),
		MinQuantity: minQty,
		MaxQuantity: maxQty,
		IsActive:    true,
	}
	require.NoError(t, conn.Create(entry).Error)
	return entry
}

func seedProduct(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, sku, basePrice string) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		TenantID:  tenantID,
		SKU:       sku,
		Name:      "Product " + sku,
		BasePrice: decimal.RequireFromString(basePrice),
		IsActive:  true,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

func seedCustomerPricing(t *testing.T, conn *gorm.DB, tenantID, customerID uuid.UUID, tableID *uuid.UUID, discount string) *models.CustomerPricing {
	t.Helper()

	row := &models.CustomerPricing{
		ID:              uuid.New(),
		TenantID:        tenantID,
		CustomerID:      customerID,
		PriceTableID:    tableID,
		DiscountPercent: decimal.RequireFromString(discount),
		IsActive:        true,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}
