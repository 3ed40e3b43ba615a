package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
)

// Repository reads the product catalog slice mirrored into the pricing store.
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

// FindByID loads a tenant's product.
func (r *Repository) FindByID(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "tenant_id = ? AND id = ?", tenantID, productID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads a batch of a tenant's products keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, tenantID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]models.Product{}, nil
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id IN ?", tenantID, productIDs).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	indexed := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		indexed[row.ID] = row
	}
	return indexed, nil
}

// FindBySKU loads a tenant's product by stock keeping unit.
func (r *Repository) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		First(&product, "tenant_id = ? AND sku = ?", tenantID, sku).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListActive returns every active product for a tenant.
func (r *Repository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("sku ASC").
		Find(&rows).
		Error
	return rows, err
}

// Upsert creates or refreshes a mirrored product row.
func (r *Repository) Upsert(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}
