package pricecatalog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	categories := `
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
);`
	tables := `
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
);`
	entries := `
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
);`
	require.NoError(t, conn.Exec(categories).Error)
	require.NoError(t, conn.Exec(tables).Error)
	require.NoError(t, conn.Exec(entries).Error)
	return conn
}

func newTestTable(t *testing.T, conn *gorm.DB, tenantID uuid.UUID, code string, priority int) *models.PriceTable {
	t.Helper()

	table := &models.PriceTable{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Code:      code,
		Name:      "Table " + code,
		Currency:  enums.CurrencyPLN,
		Priority:  priority,
		PriceType: enums.PriceTypeStandard,
		IsActive:  true,
	}
	require.NoError(t, conn.Create(table).Error)
	return table
}

func newTestEntry(t *testing.T, conn *gorm.DB, tableID, productID uuid.UUID, net string, minQty int) *models.PriceTableEntry {
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
		IsActive:    true,
	}
	require.NoError(t, conn.Create(entry).Error)
	return entry
}

func timePtr(ts time.Time) *time.Time {
	return &ts
}

func decPtr(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}
