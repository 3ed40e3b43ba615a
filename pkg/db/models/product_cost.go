package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductCost is the cost basis used for margin validation. TotalCost is a
// write-time aggregate of the purchase price plus the optional components and
// must be recomputed on every write.
type ProductCost struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID            uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null"`
	ProductID           uuid.UUID        `gorm:"column:product_id;type:uuid;not null"`
	Supplier            *string          `gorm:"column:supplier"`
	Category            *string          `gorm:"column:category"`
	PurchasePrice       decimal.Decimal  `gorm:"column:purchase_price;type:numeric(12,2);not null"`
	ShippingCost        *decimal.Decimal `gorm:"column:shipping_cost;type:numeric(12,2)"`
	HandlingCost        *decimal.Decimal `gorm:"column:handling_cost;type:numeric(12,2)"`
	CustomsCost         *decimal.Decimal `gorm:"column:customs_cost;type:numeric(12,2)"`
	OtherCost           *decimal.Decimal `gorm:"column:other_cost;type:numeric(12,2)"`
	TotalCost           decimal.Decimal  `gorm:"column:total_cost;type:numeric(12,2);not null"`
	TargetMarginPercent *decimal.Decimal `gorm:"column:target_margin_percent;type:numeric(6,2)"`
	MinSalePrice        *decimal.Decimal `gorm:"column:min_sale_price;type:numeric(12,2)"`
	ValidFrom           *time.Time       `gorm:"column:valid_from"`
	ValidTo             *time.Time       `gorm:"column:valid_to"`
	IsDefault           bool             `gorm:"column:is_default;not null"`
	IsActive            bool             `gorm:"column:is_active;not null"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (ProductCost) TableName() string {
	return "product_costs"
}

// ComputeTotalCost sums the purchase price and every configured component.
func (c ProductCost) ComputeTotalCost() decimal.Decimal {
	total := c.PurchasePrice
	for _, component := range []*decimal.Decimal{c.ShippingCost, c.HandlingCost, c.CustomsCost, c.OtherCost} {
		if component != nil {
			total = total.Add(*component)
		}
	}
	return total
}

// EffectiveTotalCost returns the persisted aggregate, falling back to the
// bare purchase price when the aggregate was never stored.
func (c ProductCost) EffectiveTotalCost() decimal.Decimal {
	if c.TotalCost.IsZero() && !c.PurchasePrice.IsZero() {
		return c.PurchasePrice
	}
	return c.TotalCost
}

// ValidAt reports whether the [valid_from, valid_to) window contains ts.
func (c ProductCost) ValidAt(ts time.Time) bool {
	if c.ValidFrom != nil && ts.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidTo != nil && !ts.Before(*c.ValidTo) {
		return false
	}
	return true
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (c *ProductCost) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
