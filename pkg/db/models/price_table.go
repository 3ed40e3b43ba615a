package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/enums"
)

// PriceTable is a named, time-bounded, prioritized collection of per-product
// prices owned by a tenant.
type PriceTable struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID   uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_price_tables_tenant_code"`
	Code       string          `gorm:"column:code;not null;uniqueIndex:ux_price_tables_tenant_code"`
	Name       string          `gorm:"column:name;not null"`
	CategoryID *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	Currency   enums.Currency  `gorm:"column:currency;not null;default:PLN"`
	ValidFrom  *time.Time      `gorm:"column:valid_from"`
	ValidTo    *time.Time      `gorm:"column:valid_to"`
	Priority   int             `gorm:"column:priority;not null;default:0"`
	PriceType  enums.PriceType `gorm:"column:price_type;not null;default:STANDARD"`
	IsDefault  bool            `gorm:"column:is_default;not null"`
	IsActive   bool            `gorm:"column:is_active;not null"`
	Entries    []PriceTableEntry `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (PriceTable) TableName() string {
	return "price_tables"
}

// ValidAt reports whether the [valid_from, valid_to) window contains ts.
func (t PriceTable) ValidAt(ts time.Time) bool {
	if t.ValidFrom != nil && ts.Before(*t.ValidFrom) {
		return false
	}
	if t.ValidTo != nil && !ts.Before(*t.ValidTo) {
		return false
	}
	return true
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (t *PriceTable) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
