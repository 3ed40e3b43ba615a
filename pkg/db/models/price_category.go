package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceCategory groups price tables into a per-tenant tree.
type PriceCategory struct {
	ID                     uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID               uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_price_categories_tenant_code"`
	Code                   string          `gorm:"column:code;not null;uniqueIndex:ux_price_categories_tenant_code"`
	Name                   string          `gorm:"column:name;not null"`
	ParentID               *uuid.UUID      `gorm:"column:parent_id;type:uuid"`
	DefaultDiscountPercent decimal.Decimal `gorm:"column:default_discount_percent;type:numeric(6,2);not null;default:0"`
	IsActive               bool            `gorm:"column:is_active;not null"`
	SortOrder              int             `gorm:"column:sort_order;not null;default:0"`
	CreatedAt              time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PriceCategory) TableName() string {
	return "price_categories"
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (c *PriceCategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
