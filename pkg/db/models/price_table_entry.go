package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceTableEntry is one product's price within a table, optionally tiered by
// quantity and temporarily discounted via a promo window.
type PriceTableEntry struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TableID        uuid.UUID        `gorm:"column:table_id;type:uuid;not null;uniqueIndex:ux_price_entries_table_product_minqty"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_price_entries_table_product_minqty"`
	PriceNet       decimal.Decimal  `gorm:"column:price_net;type:numeric(12,2);not null"`
	PriceGross     decimal.Decimal  `gorm:"column:price_gross;type:numeric(12,2);not null"`
	VATRate        decimal.Decimal  `gorm:"column:vat_rate;type:numeric(6,2);not null"`
	PromoPrice     *decimal.Decimal `gorm:"column:promo_price;type:numeric(12,2)"`
	PromoValidFrom *time.Time       `gorm:"column:promo_valid_from"`
	PromoValidTo   *time.Time       `gorm:"column:promo_valid_to"`
	MinQuantity    int              `gorm:"column:min_quantity;not null;default:1;uniqueIndex:ux_price_entries_table_product_minqty"`
	MaxQuantity    *int             `gorm:"column:max_quantity"`
	IsActive       bool             `gorm:"column:is_active;not null"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PriceTableEntry) TableName() string {
	return "price_table_entries"
}

// MatchesQuantity reports whether qty falls inside the entry tier.
func (e PriceTableEntry) MatchesQuantity(qty int) bool {
	if qty < e.MinQuantity {
		return false
	}
	if e.MaxQuantity != nil && qty > *e.MaxQuantity {
		return false
	}
	return true
}

// PromoActiveAt reports whether a promo price applies at ts.
func (e PriceTableEntry) PromoActiveAt(ts time.Time) bool {
	if e.PromoPrice == nil {
		return false
	}
	if e.PromoValidFrom != nil && ts.Before(*e.PromoValidFrom) {
		return false
	}
	if e.PromoValidTo != nil && !ts.Before(*e.PromoValidTo) {
		return false
	}
	return true
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (e *PriceTableEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
