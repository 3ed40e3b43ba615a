package pricecatalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
)

// Repository wires together category, table, and entry persistence.
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

// CreateCategory inserts a new price category row.
func (r *Repository) CreateCategory(ctx context.Context, category *models.PriceCategory) (*models.PriceCategory, error) {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory saves an existing category row.
func (r *Repository) UpdateCategory(ctx context.Context, category *models.PriceCategory) (*models.PriceCategory, error) {
	if err := r.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

// FindCategoryByID loads a tenant's category.
func (r *Repository) FindCategoryByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PriceCategory, error) {
	var category models.PriceCategory
	err := r.db.WithContext(ctx).
		First(&category, "tenant_id = ? AND id = ?", tenantID, id).
		Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindCategoryByCode loads a tenant's category by its unique code.
func (r *Repository) FindCategoryByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.PriceCategory, error) {
	var category models.PriceCategory
	err := r.db.WithContext(ctx).
		First(&category, "tenant_id = ? AND code = ?", tenantID, code).
		Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListCategories returns all of a tenant's categories ordered for display.
func (r *Repository) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]models.PriceCategory, error) {
	var rows []models.PriceCategory
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("sort_order ASC").
		Order("code ASC").
		Find(&rows).
		Error
	return rows, err
}

// CountCategoryChildren counts direct children of a category.
func (r *Repository) CountCategoryChildren(ctx context.Context, tenantID, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceCategory{}).
		Where("tenant_id = ? AND parent_id = ?", tenantID, id).
		Count(&count).
		Error
	return count, err
}

// CountTablesInCategory counts tables attached to a category.
func (r *Repository) CountTablesInCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PriceTable{}).
		Where("tenant_id = ? AND category_id = ?", tenantID, categoryID).
		Count(&count).
		Error
	return count, err
}

// DeleteCategory removes a category row.
func (r *Repository) DeleteCategory(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.PriceCategory{}).
		Error
}

// CreateTable inserts a new price table row.
func (r *Repository) CreateTable(ctx context.Context, table *models.PriceTable) (*models.PriceTable, error) {
	if err := r.db.WithContext(ctx).Create(table).Error; err != nil {
		return nil, err
	}
	return table, nil
}

// UpdateTable saves an existing table row.
func (r *Repository) UpdateTable(ctx context.Context, table *models.PriceTable) (*models.PriceTable, error) {
	if err := r.db.WithContext(ctx).Save(table).Error; err != nil {
		return nil, err
	}
	return table, nil
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

// FindTableByCode loads a tenant's price table by its unique code.
func (r *Repository) FindTableByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.PriceTable, error) {
	var table models.PriceTable
	err := r.db.WithContext(ctx).
		First(&table, "tenant_id = ? AND code = ?", tenantID, code).
		Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// TableListFilters narrows ListTables output.
type TableListFilters struct {
	PriceType  *enums.PriceType
	ActiveOnly bool
	ValidAt    *time.Time
}

// ListTables returns a tenant's tables, most specific first (priority DESC,
// name ASC), optionally filtered.
func (r *Repository) ListTables(ctx context.Context, tenantID uuid.UUID, filters TableListFilters) ([]models.PriceTable, error) {
	qb := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID)
	if filters.PriceType != nil {
		qb = qb.Where("price_type = ?", *filters.PriceType)
	}
	if filters.ActiveOnly {
		qb = qb.Where("is_active = ?", true)
	}
	if filters.ValidAt != nil {
		ts := *filters.ValidAt
		qb = qb.Where("(valid_from IS NULL OR valid_from <= ?)", ts).
			Where("(valid_to IS NULL OR valid_to > ?)", ts)
	}

	var rows []models.PriceTable
	err := qb.Order("priority DESC").Order("name ASC").Find(&rows).Error
	return rows, err
}

// FindDefaultTable returns the tenant's default table, if one is set.
func (r *Repository) FindDefaultTable(ctx context.Context, tenantID uuid.UUID) (*models.PriceTable, error) {
	var table models.PriceTable
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Order("priority DESC").
		Order("name ASC").
		First(&table).
		Error
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// ClearDefaultTable unsets the default flag across the tenant's tables.
func (r *Repository) ClearDefaultTable(ctx context.Context, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceTable{}).
		Where("tenant_id = ? AND is_default = ?", tenantID, true).
		Update("is_default", false).
		Error
}

// MarkTableDefault sets the default flag on one table.
func (r *Repository) MarkTableDefault(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PriceTable{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_default", true).
		Error
}

// DeleteTable removes a table row; entries cascade at the schema level.
func (r *Repository) DeleteTable(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.PriceTable{}).
		Error
}

// CreateEntry inserts a new price table entry.
func (r *Repository) CreateEntry(ctx context.Context, entry *models.PriceTableEntry) (*models.PriceTableEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// UpdateEntry saves an existing entry row.
func (r *Repository) UpdateEntry(ctx context.Context, entry *models.PriceTableEntry) (*models.PriceTableEntry, error) {
	if err := r.db.WithContext(ctx).Save(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// FindEntryByID loads an entry row.
func (r *Repository) FindEntryByID(ctx context.Context, id uuid.UUID) (*models.PriceTableEntry, error) {
	var entry models.PriceTableEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntriesByTable returns all entries of a table ordered by product and
// ascending tier.
func (r *Repository) ListEntriesByTable(ctx context.Context, tableID uuid.UUID) ([]models.PriceTableEntry, error) {
	var rows []models.PriceTableEntry
	err := r.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("product_id ASC").
		Order("min_quantity ASC").
		Find(&rows).
		Error
	return rows, err
}

// ListActiveEntriesByTable returns the table's active entries.
func (r *Repository) ListActiveEntriesByTable(ctx context.Context, tableID uuid.UUID) ([]models.PriceTableEntry, error) {
	var rows []models.PriceTableEntry
	err := r.db.WithContext(ctx).
		Where("table_id = ? AND is_active = ?", tableID, true).
		Order("product_id ASC").
		Order("min_quantity ASC").
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

// ListEntriesByProduct returns every entry referencing the product across the
// tenant's tables, most recently updated first.
func (r *Repository) ListEntriesByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]models.PriceTableEntry, error) {
	var rows []models.PriceTableEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN price_tables t ON t.id = price_table_entries.table_id").
		Where("t.tenant_id = ? AND price_table_entries.product_id = ?", tenantID, productID).
		Order("price_table_entries.updated_at DESC").
		Order("price_table_entries.id DESC").
		Find(&rows).
		Error
	return rows, err
}

// DeleteEntry removes an entry row.
func (r *Repository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PriceTableEntry{}).
		Error
}
