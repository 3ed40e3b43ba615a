package surcharges

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
)

// Repository exposes surcharge persistence.
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

// Create inserts a new surcharge row.
func (r *Repository) Create(ctx context.Context, surcharge *models.Surcharge) (*models.Surcharge, error) {
	if err := r.db.WithContext(ctx).Create(surcharge).Error; err != nil {
		return nil, err
	}
	return surcharge, nil
}

// Update saves an existing surcharge row.
func (r *Repository) Update(ctx context.Context, surcharge *models.Surcharge) (*models.Surcharge, error) {
	if err := r.db.WithContext(ctx).Save(surcharge).Error; err != nil {
		return nil, err
	}
	return surcharge, nil
}

// FindByID loads a tenant's surcharge.
func (r *Repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Surcharge, error) {
	var surcharge models.Surcharge
	err := r.db.WithContext(ctx).
		First(&surcharge, "tenant_id = ? AND id = ?", tenantID, id).
		Error
	if err != nil {
		return nil, err
	}
	return &surcharge, nil
}

// FindByCode loads a tenant's surcharge by its unique code.
func (r *Repository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*models.Surcharge, error) {
	var surcharge models.Surcharge
	err := r.db.WithContext(ctx).
		First(&surcharge, "tenant_id = ? AND code = ?", tenantID, code).
		Error
	if err != nil {
		return nil, err
	}
	return &surcharge, nil
}

// List returns a tenant's surcharges ordered by code.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.Surcharge, error) {
	qb := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		qb = qb.Where("is_active = ?", true)
	}
	var rows []models.Surcharge
	err := qb.Order("code ASC").Find(&rows).Error
	return rows, err
}

// ListActive returns the tenant's active surcharges ordered by code.
func (r *Repository) ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Surcharge, error) {
	return r.List(ctx, tenantID, true)
}

// Delete removes a surcharge row.
func (r *Repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.Surcharge{}).
		Error
}
