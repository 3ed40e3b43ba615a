package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ResolveInput identifies the product, buyer, and moment a price is needed
// for. Quantity defaults to 1 and AsOf to the current time.
type ResolveInput struct {
	TenantID   uuid.UUID  `json:"tenant_id"`
	ProductID  uuid.UUID  `json:"product_id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	Quantity   int        `json:"quantity"`
	AsOf       time.Time  `json:"as_of"`
	// TableID forces resolution against a specific table, skipping the
	// customer assignment.
	TableID *uuid.UUID `json:"table_id,omitempty"`
}

// ResolvedPrice is the outcome of one resolution. A product with no price
// anywhere yields a zero-valued result, never an error.
type ResolvedPrice struct {
	ProductID          uuid.UUID        `json:"product_id"`
	PriceNet           decimal.Decimal  `json:"price_net"`
	PriceGross         decimal.Decimal  `json:"price_gross"`
	VATRate            decimal.Decimal  `json:"vat_rate"`
	Currency           string           `json:"currency"`
	SourceTableID      *uuid.UUID       `json:"source_table_id,omitempty"`
	Source             string           `json:"source"`
	IsPromo            bool             `json:"is_promo"`
	DiscountPercent    *decimal.Decimal `json:"discount_percent,omitempty"`
	OriginalPriceNet   *decimal.Decimal `json:"original_price_net,omitempty"`
	OriginalPriceGross *decimal.Decimal `json:"original_price_gross,omitempty"`
}

// PriceComparison is one table's offer for a product at a point in time.
type PriceComparison struct {
	TableID    uuid.UUID       `json:"table_id"`
	TableCode  string          `json:"table_code"`
	TableName  string          `json:"table_name"`
	PriceType  string          `json:"price_type"`
	Currency   string          `json:"currency"`
	PriceNet   decimal.Decimal `json:"price_net"`
	PriceGross decimal.Decimal `json:"price_gross"`
	IsPromo    bool            `json:"is_promo"`
	IsDefault  bool            `json:"is_default"`
}

// HistoryEntry is one row of a product's price history across tables.
type HistoryEntry struct {
	EntryID     uuid.UUID        `json:"entry_id"`
	TableID     uuid.UUID        `json:"table_id"`
	TableCode   string           `json:"table_code"`
	TableName   string           `json:"table_name"`
	PriceNet    decimal.Decimal  `json:"price_net"`
	PriceGross  decimal.Decimal  `json:"price_gross"`
	VATRate     decimal.Decimal  `json:"vat_rate"`
	PromoPrice  *decimal.Decimal `json:"promo_price,omitempty"`
	MinQuantity int              `json:"min_quantity"`
	IsActive    bool             `json:"is_active"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// HistoryResult is a cursor-paginated slice of a product's price history.
type HistoryResult struct {
	Entries    []HistoryEntry `json:"entries"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
