package pricecatalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
)

// CategoryDTO represents a price category payload returned to callers.
type CategoryDTO struct {
	ID                     uuid.UUID       `json:"id"`
	Code                   string          `json:"code"`
	Name                   string          `json:"name"`
	ParentID               *uuid.UUID      `json:"parent_id,omitempty"`
	DefaultDiscountPercent decimal.Decimal `json:"default_discount_percent"`
	IsActive               bool            `json:"is_active"`
	SortOrder              int             `json:"sort_order"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// NewCategoryDTO builds a DTO from the persisted model.
func NewCategoryDTO(category *models.PriceCategory) *CategoryDTO {
	return &CategoryDTO{
		ID:                     category.ID,
		Code:                   category.Code,
		Name:                   category.Name,
		ParentID:               category.ParentID,
		DefaultDiscountPercent: category.DefaultDiscountPercent,
		IsActive:               category.IsActive,
		SortOrder:              category.SortOrder,
		CreatedAt:              category.CreatedAt,
		UpdatedAt:              category.UpdatedAt,
	}
}

// TableDTO represents a price table payload returned to callers.
type TableDTO struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Currency   string     `json:"currency"`
	ValidFrom  *time.Time `json:"valid_from,omitempty"`
	ValidTo    *time.Time `json:"valid_to,omitempty"`
	Priority   int        `json:"priority"`
	PriceType  string     `json:"price_type"`
	IsDefault  bool       `json:"is_default"`
	IsActive   bool       `json:"is_active"`
	EntryCount int        `json:"entry_count,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewTableDTO builds a DTO from the persisted model.
func NewTableDTO(table *models.PriceTable) *TableDTO {
	return &TableDTO{
		ID:         table.ID,
		Code:       table.Code,
		Name:       table.Name,
		CategoryID: table.CategoryID,
		Currency:   table.Currency.String(),
		ValidFrom:  table.ValidFrom,
		ValidTo:    table.ValidTo,
		Priority:   table.Priority,
		PriceType:  table.PriceType.String(),
		IsDefault:  table.IsDefault,
		IsActive:   table.IsActive,
		EntryCount: len(table.Entries),
		CreatedAt:  table.CreatedAt,
		UpdatedAt:  table.UpdatedAt,
	}
}

// EntryDTO represents a single product price within a table.
type EntryDTO struct {
	ID             uuid.UUID        `json:"id"`
	TableID        uuid.UUID        `json:"table_id"`
	ProductID      uuid.UUID        `json:"product_id"`
	PriceNet       decimal.Decimal  `json:"price_net"`
	PriceGross     decimal.Decimal  `json:"price_gross"`
	VATRate        decimal.Decimal  `json:"vat_rate"`
	PromoPrice     *decimal.Decimal `json:"promo_price,omitempty"`
	PromoValidFrom *time.Time       `json:"promo_valid_from,omitempty"`
	PromoValidTo   *time.Time       `json:"promo_valid_to,omitempty"`
	MinQuantity    int              `json:"min_quantity"`
	MaxQuantity    *int             `json:"max_quantity,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NewEntryDTO builds a DTO from the persisted model.
func NewEntryDTO(entry *models.PriceTableEntry) *EntryDTO {
	return &EntryDTO{
		ID:             entry.ID,
		TableID:        entry.TableID,
		ProductID:      entry.ProductID,
		PriceNet:       entry.PriceNet,
		PriceGross:     entry.PriceGross,
		VATRate:        entry.VATRate,
		PromoPrice:     entry.PromoPrice,
		PromoValidFrom: entry.PromoValidFrom,
		PromoValidTo:   entry.PromoValidTo,
		MinQuantity:    entry.MinQuantity,
		MaxQuantity:    entry.MaxQuantity,
		IsActive:       entry.IsActive,
		CreatedAt:      entry.CreatedAt,
		UpdatedAt:      entry.UpdatedAt,
	}
}

// NewEntryDTOs maps a slice of entry models.
func NewEntryDTOs(entries []models.PriceTableEntry) []EntryDTO {
	dtos := make([]EntryDTO, 0, len(entries))
	for i := range entries {
		dtos = append(dtos, *NewEntryDTO(&entries[i]))
	}
	return dtos
}

// BulkInsertResult reports the outcome of a bulk entry insert.
type BulkInsertResult struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	SkipErrs error    `json:"-"`
	Entries  []EntryDTO `json:"entries"`
}

// BulkAdjustResult reports the outcome of a bulk price adjustment.
type BulkAdjustResult struct {
	Updated int        `json:"updated"`
	Entries []EntryDTO `json:"entries"`
}
