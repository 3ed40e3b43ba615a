package surcharges

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
)

// SurchargeDTO represents a surcharge payload returned to callers.
type SurchargeDTO struct {
	ID            uuid.UUID            `json:"id"`
	Code          string               `json:"code"`
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	Value         decimal.Decimal      `json:"value"`
	MinValue      *decimal.Decimal     `json:"min_value,omitempty"`
	MaxValue      *decimal.Decimal     `json:"max_value,omitempty"`
	Tiers         types.SurchargeTiers `json:"tiers,omitempty"`
	CategoryCodes []string             `json:"category_codes,omitempty"`
	ProductIDs    types.UUIDList       `json:"product_ids,omitempty"`
	MinOrderValue *decimal.Decimal     `json:"min_order_value,omitempty"`
	MaxOrderValue *decimal.Decimal     `json:"max_order_value,omitempty"`
	IsRequired    bool                 `json:"is_required"`
	ValidFrom     *time.Time           `json:"valid_from,omitempty"`
	ValidTo       *time.Time           `json:"valid_to,omitempty"`
	IsActive      bool                 `json:"is_active"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// NewSurchargeDTO builds a DTO from the persisted model.
func NewSurchargeDTO(surcharge *models.Surcharge) *SurchargeDTO {
	return &SurchargeDTO{
		ID:            surcharge.ID,
		Code:          surcharge.Code,
		Name:          surcharge.Name,
		Type:          surcharge.Type.String(),
		Value:         surcharge.Value,
		MinValue:      surcharge.MinValue,
		MaxValue:      surcharge.MaxValue,
		Tiers:         surcharge.Tiers,
		CategoryCodes: surcharge.CategoryCodes,
		ProductIDs:    surcharge.ProductIDs,
		MinOrderValue: surcharge.MinOrderValue,
		MaxOrderValue: surcharge.MaxOrderValue,
		IsRequired:    surcharge.IsRequired,
		ValidFrom:     surcharge.ValidFrom,
		ValidTo:       surcharge.ValidTo,
		IsActive:      surcharge.IsActive,
		CreatedAt:     surcharge.CreatedAt,
		UpdatedAt:     surcharge.UpdatedAt,
	}
}

// OrderContext carries the order measures surcharge evaluation runs against.
type OrderContext struct {
	OrderValue    decimal.Decimal `json:"order_value"`
	TotalArea     decimal.Decimal `json:"total_area"`
	TotalLength   decimal.Decimal `json:"total_length"`
	TotalWeight   decimal.Decimal `json:"total_weight"`
	UnitCount     int             `json:"unit_count"`
	CategoryCodes []string        `json:"category_codes,omitempty"`
	ProductIDs    []uuid.UUID     `json:"product_ids,omitempty"`
	// SurchargeIDs restricts evaluation to the listed surcharges when
	// non-empty.
	SurchargeIDs []uuid.UUID `json:"surcharge_ids,omitempty"`
	AsOf         time.Time   `json:"as_of"`
}

// CalculatedSurcharge is one evaluated surcharge with its computed amount.
// Whether an optional surcharge is applied stays the caller's business.
type CalculatedSurcharge struct {
	SurchargeID uuid.UUID       `json:"surcharge_id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	BaseValue   decimal.Decimal `json:"base_value"`
	Amount      decimal.Decimal `json:"amount"`
	IsRequired  bool            `json:"is_required"`
}
