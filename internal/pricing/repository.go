package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/pagination"
)

// Repository serves the resolver's read paths over tables and entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindTableByID loads a tenant's price table.
func (r *Repository) FindTableByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PriceTable, error) {
	var table models.PriceTable
	err := r.db.WithContext(ctx).
		First(&table, "tenant_id = ? AND id = ?", tenantID, id).
		Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// FindDefaultTable returns the tenant's active default table valid at ts,
// highest priority first with the name breaking ties.
func (r *Repository) FindDefaultTable(ctx context.Context, tenantID uuid.UUID, ts time.Time) (*models.PriceTable, error) {
	var table models.PriceTable
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_default = ? AND is_active = ?", tenantID, true, true).
		Where("(valid_from IS NULL OR valid_from <= ?)", ts).
		Where("(valid_to IS NULL OR valid_to > ?)", ts).
		Order("priority DESC").
		Order("name ASC").
		First(&table).
		Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ListActiveTables returns the tenant's active tables valid at ts, most
// specific first.
func (r *Repository) ListActiveTables(ctx context.Context, tenantID uuid.UUID, ts time.Time) ([]models.PriceTable, error) {
	var rows []models.PriceTable
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("(valid_from IS NULL OR valid_from <= ?)", ts).
		Where("(valid_to IS NULL OR valid_to > ?)", ts).
		Order("priority DESC").
		Order("name ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListEntriesForProduct returns a table's active entries for one product,
// highest tier first.
func (r *Repository) ListEntriesForProduct(ctx context.Context, tableID, productID uuid.UUID) ([]models.PriceTableEntry, error) {
	var rows []models.PriceTableEntry
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND product_id = ? AND is_active = ?", tableID, productID, true).
		Order("min_quantity DESC").
		Find(&rows).
		Error
	return rows, err
}

// FindActiveCustomerPricing returns the customer's single active pricing row.
func (r *Repository) FindActiveCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) (*models.CustomerPricing, error) {
	var row models.CustomerPricing
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND is_active = ?", tenantID, customerID, true).
		First(&row).
		Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindCategoryDiscount returns the default discount of a category by code.
func (r *Repository) FindCategoryDiscount(ctx context.Context, tenantID uuid.UUID, code string) (decimal.Decimal, error) {
	var category models.PriceCategory
	err := r.db.WithContext(ctx).
		Select("default_discount_percent").
		Where("tenant_id = ? AND code = ? AND is_active = ?", tenantID, code, true).
		First(&category).
		Error
	if err != nil {
		return decimal.Zero, err
	}
	return category.DefaultDiscountPercent, nil
}

// historyRecord is the joined row backing the price history read.
type historyRecord struct {
	EntryID     uuid.UUID
	TableID     uuid.UUID
	TableCode   string
	TableName   string
	PriceNet    decimal.Decimal
	PriceGross  decimal.Decimal
	VATRate     decimal.Decimal
	PromoPrice  *decimal.Decimal
	MinQuantity int
	IsActive    bool
	UpdatedAt   time.Time
}

// HistoryPage returns one cursor page of a product's price entries across
// the tenant's tables, most recently updated first.
func (r *Repository) HistoryPage(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*HistoryResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).
		Table("price_table_entries e").
		Select(
			"e.id AS entry_id",
			"e.table_id",
			"t.code AS table_code",
			"t.name AS table_name",
			"e.price_net",
			"e.price_gross",
			"e.vat_rate",
			"e.promo_price",
			"e.min_quantity",
			"e.is_active",
			"e.updated_at",
		).
		Joins("JOIN price_tables t ON t.id = e.table_id").
		Where("t.tenant_id = ? AND e.product_id = ?", tenantID, productID)

	if cursor != nil {
		qb = qb.Where("(e.updated_at < ?) OR (e.updated_at = ? AND e.id < ?)", cursor.UpdatedAt, cursor.UpdatedAt, cursor.ID)
	}

	qb = qb.Order("e.updated_at DESC").Order("e.id DESC").Limit(limitWithBuffer)

	var records []historyRecord
	if err := qb.Scan(&records).Error; err != nil {
		return nil, err
	}

	resultRows := records
	nextCursor := ""
	if len(records) > pageSize {
		resultRows = records[:pageSize]
		last := resultRows[len(resultRows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{UpdatedAt: last.UpdatedAt, ID: last.EntryID})
	}

	entries := make([]HistoryEntry, 0, len(resultRows))
	for _, record := range resultRows {
		entries = append(entries, HistoryEntry{
			EntryID:     record.EntryID,
			TableID:     record.TableID,
			TableCode:   record.TableCode,
			TableName:   record.TableName,
			PriceNet:    record.PriceNet,
			PriceGross:  record.PriceGross,
			VATRate:     record.VATRate,
			PromoPrice:  record.PromoPrice,
			MinQuantity: record.MinQuantity,
			IsActive:    record.IsActive,
			UpdatedAt:   record.UpdatedAt,
		})
	}

	return &HistoryResult{
		Entries:    entries,
		NextCursor: nextCursor,
	}, nil
}
