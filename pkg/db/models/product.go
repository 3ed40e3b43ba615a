package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product mirrors the minimal slice of the product catalog the engine reads:
// the base price fallback plus the attributes surcharge filters match on.
// The catalog itself is owned by another service.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID     uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_products_tenant_sku"`
	SKU          string           `gorm:"column:sku;not null;uniqueIndex:ux_products_tenant_sku"`
	Name         string           `gorm:"column:name;not null"`
	BasePrice    decimal.Decimal  `gorm:"column:base_price;type:numeric(12,2);not null;default:0"`
	VATRate      *decimal.Decimal `gorm:"column:vat_rate;type:numeric(6,2)"`
	CategoryCode *string          `gorm:"column:category_code"`
	Unit         string           `gorm:"column:unit;not null;default:pcs"`
	IsActive     bool             `gorm:"column:is_active;not null"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Product) TableName() string {
	return "products"
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
