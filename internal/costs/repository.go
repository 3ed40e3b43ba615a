package costs

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
)

// Repository exposes product cost and customer pricing persistence.
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

// CreateCost inserts a new product cost row.
func (r *Repository) CreateCost(ctx context.Context, cost *models.ProductCost) (*models.ProductCost, error) {
	if err := r.db.WithContext(ctx).Create(cost).Error; err != nil {
		return nil, err
	}
	return cost, nil
}

// UpdateCost saves an existing cost row.
func (r *Repository) UpdateCost(ctx context.Context, cost *models.ProductCost) (*models.ProductCost, error) {
	if err := r.db.WithContext(ctx).Save(cost).Error; err != nil {
		return nil, err
	}
	return cost, nil
}

// FindCostByID loads a tenant's cost row.
func (r *Repository) FindCostByID(ctx context.Context, tenantID, id uuid.UUID) (*models.ProductCost, error) {
	var cost models.ProductCost
	err := r.db.WithContext(ctx).
		First(&cost, "tenant_id = ? AND id = ?", tenantID, id).
		Error
	if err != nil {
		return nil, err
	}
	return &cost, nil
}

// ListCostsByProduct returns all active cost rows for a product, the default
// first.
func (r *Repository) ListCostsByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]models.ProductCost, error) {
	var rows []models.ProductCost
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND is_active = ?", tenantID, productID, true).
		Order("is_default DESC").
		Order("updated_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// ClearDefaultCost unsets the default flag on a product's cost rows.
func (r *Repository) ClearDefaultCost(ctx context.Context, tenantID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductCost{}).
		Where("tenant_id = ? AND product_id = ? AND is_default = ?", tenantID, productID, true).
		Update("is_default", false).
		Error
}

// MarkCostDefault sets the default flag on one cost row.
func (r *Repository) MarkCostDefault(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductCost{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_default", true).
		Error
}

// DeleteCost removes a cost row.
func (r *Repository) DeleteCost(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.ProductCost{}).
		Error
}

// ListDefaultCostsWithTarget returns every active default cost carrying a
// margin target, for the low-margin report.
func (r *Repository) ListDefaultCostsWithTarget(ctx context.Context, tenantID uuid.UUID) ([]models.ProductCost, error) {
	var rows []models.ProductCost
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND is_default = ?", tenantID, true, true).
		Where("target_margin_percent IS NOT NULL").
		Order("product_id ASC").
		Find(&rows).
		Error
	return rows, err
}

// CreateCustomerPricing inserts a new customer pricing row.
func (r *Repository) CreateCustomerPricing(ctx context.Context, pricing *models.CustomerPricing) (*models.CustomerPricing, error) {
	if err := r.db.WithContext(ctx).Create(pricing).Error; err != nil {
		return nil, err
	}
	return pricing, nil
}

// FindCustomerPricingByID loads a tenant's customer pricing row.
func (r *Repository) FindCustomerPricingByID(ctx context.Context, tenantID, id uuid.UUID) (*models.CustomerPricing, error) {
	var pricing models.CustomerPricing
	err := r.db.WithContext(ctx).
		First(&pricing, "tenant_id = ? AND id = ?", tenantID, id).
		Error
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// FindActiveCustomerPricing returns the customer's single active row.
func (r *Repository) FindActiveCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) (*models.CustomerPricing, error) {
	var pricing models.CustomerPricing
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ? AND is_active = ?", tenantID, customerID, true).
		First(&pricing).
		Error
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// DeactivateCustomerPricing clears the active flag on a customer's rows.
func (r *Repository) DeactivateCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CustomerPricing{}).
		Where("tenant_id = ? AND customer_id = ? AND is_active = ?", tenantID, customerID, true).
		Update("is_active", false).
		Error
}

// ListCustomerPricing returns every pricing row of a customer, newest first.
func (r *Repository) ListCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) ([]models.CustomerPricing, error) {
	var rows []models.CustomerPricing
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND customer_id = ?", tenantID, customerID).
		Order("created_at DESC").
		Find(&rows).
		Error
	return rows, err
}

// DeleteCustomerPricing removes a customer pricing row.
func (r *Repository) DeleteCustomerPricing(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.CustomerPricing{}).
		Error
}
