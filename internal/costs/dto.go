package costs

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
)

// CostDTO represents a product cost payload returned to callers.
type CostDTO struct {
	ID                  uuid.UUID        `json:"id"`
	ProductID           uuid.UUID        `json:"product_id"`
	Supplier            *string          `json:"supplier,omitempty"`
	Category            *string          `json:"category,omitempty"`
	PurchasePrice       decimal.Decimal  `json:"purchase_price"`
	ShippingCost        *decimal.Decimal `json:"shipping_cost,omitempty"`
	HandlingCost        *decimal.Decimal `json:"handling_cost,omitempty"`
	CustomsCost         *decimal.Decimal `json:"customs_cost,omitempty"`
	OtherCost           *decimal.Decimal `json:"other_cost,omitempty"`
	TotalCost           decimal.Decimal  `json:"total_cost"`
	TargetMarginPercent *decimal.Decimal `json:"target_margin_percent,omitempty"`
	MinSalePrice        *decimal.Decimal `json:"min_sale_price,omitempty"`
	ValidFrom           *time.Time       `json:"valid_from,omitempty"`
	ValidTo             *time.Time       `json:"valid_to,omitempty"`
	IsDefault           bool             `json:"is_default"`
	IsActive            bool             `json:"is_active"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NewCostDTO builds a DTO from the persisted model.
func NewCostDTO(cost *models.ProductCost) *CostDTO {
	return &CostDTO{
		ID:                  cost.ID,
		ProductID:           cost.ProductID,
		Supplier:            cost.Supplier,
		Category:            cost.Category,
		PurchasePrice:       cost.PurchasePrice,
		ShippingCost:        cost.ShippingCost,
		HandlingCost:        cost.HandlingCost,
		CustomsCost:         cost.CustomsCost,
		OtherCost:           cost.OtherCost,
		TotalCost:           cost.TotalCost,
		TargetMarginPercent: cost.TargetMarginPercent,
		MinSalePrice:        cost.MinSalePrice,
		ValidFrom:           cost.ValidFrom,
		ValidTo:             cost.ValidTo,
		IsDefault:           cost.IsDefault,
		IsActive:            cost.IsActive,
		CreatedAt:           cost.CreatedAt,
		UpdatedAt:           cost.UpdatedAt,
	}
}

// CustomerPricingDTO represents a customer's pricing terms.
type CustomerPricingDTO struct {
	ID                uuid.UUID        `json:"id"`
	CustomerID        uuid.UUID        `json:"customer_id"`
	PriceTableID      *uuid.UUID       `json:"price_table_id,omitempty"`
	PriceCategoryCode *string          `json:"price_category_code,omitempty"`
	DiscountPercent   decimal.Decimal  `json:"discount_percent"`
	CreditLimit       *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentTermDays   *int             `json:"payment_term_days,omitempty"`
	ValidFrom         *time.Time       `json:"valid_from,omitempty"`
	ValidTo           *time.Time       `json:"valid_to,omitempty"`
	IsActive          bool             `json:"is_active"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// NewCustomerPricingDTO builds a DTO from the persisted model.
func NewCustomerPricingDTO(pricing *models.CustomerPricing) *CustomerPricingDTO {
	return &CustomerPricingDTO{
		ID:                pricing.ID,
		CustomerID:        pricing.CustomerID,
		PriceTableID:      pricing.PriceTableID,
		PriceCategoryCode: pricing.PriceCategoryCode,
		DiscountPercent:   pricing.DiscountPercent,
		CreditLimit:       pricing.CreditLimit,
		PaymentTermDays:   pricing.PaymentTermDays,
		ValidFrom:         pricing.ValidFrom,
		ValidTo:           pricing.ValidTo,
		IsActive:          pricing.IsActive,
		CreatedAt:         pricing.CreatedAt,
		UpdatedAt:         pricing.UpdatedAt,
	}
}

// MarginResult is the outcome of one margin check.
type MarginResult struct {
	ProductID      uuid.UUID       `json:"product_id"`
	SalePrice      decimal.Decimal `json:"sale_price"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	MarginValue    decimal.Decimal `json:"margin_value"`
	MarginPercent  decimal.Decimal `json:"margin_percent"`
	IsAboveTarget  bool            `json:"is_above_target"`
	IsBelowMinPrice bool           `json:"is_below_min_price"`
}

// SuggestedPrice is the sale price hitting a target margin.
type SuggestedPrice struct {
	ProductID      uuid.UUID        `json:"product_id"`
	SuggestedPrice decimal.Decimal  `json:"suggested_price"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	MinSalePrice   *decimal.Decimal `json:"min_sale_price,omitempty"`
}

// LowMarginProduct is one row of the low-margin report.
type LowMarginProduct struct {
	ProductID           uuid.UUID        `json:"product_id"`
	TotalCost           decimal.Decimal  `json:"total_cost"`
	PriceNet            decimal.Decimal  `json:"price_net"`
	MarginValue         decimal.Decimal  `json:"margin_value"`
	MarginPercent       decimal.Decimal  `json:"margin_percent"`
	TargetMarginPercent *decimal.Decimal `json:"target_margin_percent,omitempty"`
}
