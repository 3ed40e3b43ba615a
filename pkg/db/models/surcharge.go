package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/enums"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
)

// Surcharge is an additional, conditionally-applicable order charge. NULL
// allow-lists mean the surcharge applies to every category/product.
type Surcharge struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID      uuid.UUID            `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:ux_surcharges_tenant_code"`
	Code          string               `gorm:"column:code;not null;uniqueIndex:ux_surcharges_tenant_code"`
	Name          string               `gorm:"column:name;not null"`
	Type          enums.SurchargeType  `gorm:"column:type;not null"`
	Value         decimal.Decimal      `gorm:"column:value;type:numeric(12,4);not null"`
	MinValue      *decimal.Decimal     `gorm:"column:min_value;type:numeric(12,2)"`
	MaxValue      *decimal.Decimal     `gorm:"column:max_value;type:numeric(12,2)"`
	Tiers         types.SurchargeTiers `gorm:"column:tiers;type:jsonb"`
	CategoryCodes pq.StringArray       `gorm:"column:category_codes;type:text[]"`
	ProductIDs    types.UUIDList       `gorm:"column:product_ids;type:jsonb"`
	MinOrderValue *decimal.Decimal     `gorm:"column:min_order_value;type:numeric(12,2)"`
	MaxOrderValue *decimal.Decimal     `gorm:"column:max_order_value;type:numeric(12,2)"`
	IsRequired    bool                 `gorm:"column:is_required;not null"`
	ValidFrom     *time.Time           `gorm:"column:valid_from"`
	ValidTo       *time.Time           `gorm:"column:valid_to"`
	IsActive      bool                 `gorm:"column:is_active;not null"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Surcharge) TableName() string {
	return "surcharges"
}

// ValidAt reports whether the [valid_from, valid_to) window contains ts.
func (s Surcharge) ValidAt(ts time.Time) bool {
	if s.ValidFrom != nil && ts.Before(*s.ValidFrom) {
		return false
	}
	if s.ValidTo != nil && !ts.Before(*s.ValidTo) {
		return false
	}
	return true
}

// BeforeCreate assigns a fresh id when the caller left it unset.
func (s *Surcharge) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
