package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomerPricing overrides the price source and discount for a single
// customer. At most one active row may exist per (tenant, customer).
type CustomerPricing struct {
	ID                uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID          uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null"`
	CustomerID        uuid.UUID        `gorm:"column:customer_id;type:uuid;not null"`
	PriceTableID      *uuid.UUID       `gorm:"column:price_table_id;type:uuid"`
	PriceCategoryCode *string          `gorm:"column:price_category_code"`
	DiscountPercent   decimal.Decimal  `gorm:"column:discount_percent;type:numeric(6,2);not null;default:0"`
	CreditLimit       *decimal.Decimal `gorm:"column:credit_limit;type:numeric(12,2)"`
	PaymentTermDays   *int             `gorm:"column:payment_term_days"`
	ValidFrom         *time.Time       `gorm:"column:valid_from"`
	ValidTo           *time.Time       `gorm:"column:valid_to"`
	IsActive          bool             `gorm:"column:is_active;not null"`
	CreatedAt         time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CustomerPricing) TableName() string {
	return "customer_pricing"
}

// ValidAt reports whether the [valid_from, valid_to) window contains ts.
func (p CustomerPricing) ValidAt(ts time.Time) bool {
	if p.ValidFrom != nil && ts.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidTo != nil && !ts.Before(*p.ValidTo) {
		return false
	}
	return true
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (p *CustomerPricing) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
