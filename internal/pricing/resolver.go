package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/config"
	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
	"github.com/fabrykasoft/pricing-engine/pkg/metrics"
	"github.com/fabrykasoft/pricing-engine/pkg/pagination"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
)

// Resolver resolves effective prices through the customer/default/base-price
// waterfall and serves the auxiliary price reads.
type Resolver interface {
	Resolve(ctx context.Context, input ResolveInput) (*ResolvedPrice, error)
	ResolveBatch(ctx context.Context, inputs []ResolveInput) ([]ResolvedPrice, error)
	ComparePrices(ctx context.Context, tenantID, productID uuid.UUID, asOf time.Time) ([]PriceComparison, error)
	PriceHistory(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*HistoryResult, error)
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

type productReader interface {
	FindByID(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
}

// resolver implements the price resolution waterfall.
type resolver struct {
	repo     *Repository
	products productReader
	pricing  config.PricingConfig
	metrics  *metrics.PricingMetrics
}

// NewResolver constructs a resolver instance. Metrics are optional.
func NewResolver(repo *Repository, products productReader, pricing config.PricingConfig, pricingMetrics *metrics.PricingMetrics) (Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &resolver{
		repo:     repo,
		products: products,
		pricing:  pricing,
		metrics:  pricingMetrics,
	}, nil
}

// Resolve walks the waterfall for one product. A product with no price
// anywhere yields a zero-valued result with the configured VAT rate.
func (r *resolver) Resolve(ctx context.Context, input ResolveInput) (*ResolvedPrice, error) {
	started := time.Now()
	defer func() {
		r.metrics.ObserveDuration("resolve", time.Since(started))
	}()

	qty := input.Quantity
	if qty <= 0 {
		qty = 1
	}
	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	discount, customerTableID, err := r.customerTerms(ctx, input.TenantID, input.CustomerID, asOf)
	if err != nil {
		return nil, err
	}

	// explicit override beats the customer assignment
	candidateTableID := input.TableID
	source := metrics.SourceOverrideTable
	if candidateTableID == nil {
		candidateTableID = customerTableID
		source = metrics.SourceCustomerTable
	}

	if candidateTableID != nil {
		resolved, err := r.resolveFromTable(ctx, input.TenantID, *candidateTableID, input.ProductID, qty, asOf, discount, source)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}

	defaultTable, err := r.repo.FindDefaultTable(ctx, input.TenantID, asOf)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default price table")
	}
	if defaultTable != nil {
		resolved, err := r.resolveFromEntries(ctx, defaultTable, input.ProductID, qty, asOf, discount, metrics.SourceDefaultTable)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}

	return r.resolveFromBasePrice(ctx, input.TenantID, input.ProductID, discount)
}

// ResolveBatch resolves many inputs sequentially; a single failure aborts.
func (r *resolver) ResolveBatch(ctx context.Context, inputs []ResolveInput) ([]ResolvedPrice, error) {
	results := make([]ResolvedPrice, 0, len(inputs))
	for _, input := range inputs {
		resolved, err := r.Resolve(ctx, input)
		if err != nil {
			return nil, err
		}
		results = append(results, *resolved)
	}
	return results, nil
}

// ComparePrices lists every active table's offer for the product at asOf,
// cheapest net first.
func (r *resolver) ComparePrices(ctx context.Context, tenantID, productID uuid.UUID, asOf time.Time) ([]PriceComparison, error) {
	if asOf.IsZero() {
		asOf = time.Now()
	}

	tables, err := r.repo.ListActiveTables(ctx, tenantID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price tables")
	}

	comparisons := make([]PriceComparison, 0, len(tables))
	for i := range tables {
		table := tables[i]
		entry, err := r.matchEntry(ctx, table.ID, productID, 1)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}

		net, gross := entry.PriceNet, entry.PriceGross
		promo := entry.PromoActiveAt(asOf)
		if promo {
			net, gross = promoPrices(entry)
		}

		comparisons = append(comparisons, PriceComparison{
			TableID:    table.ID,
			TableCode:  table.Code,
			TableName:  table.Name,
			PriceType:  table.PriceType.String(),
			Currency:   table.Currency.String(),
			PriceNet:   types.RoundMoney(net),
			PriceGross: types.RoundMoney(gross),
			IsPromo:    promo,
			IsDefault:  table.IsDefault,
		})
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		return comparisons[i].PriceNet.LessThan(comparisons[j].PriceNet)
	})
	return comparisons, nil
}

// PriceHistory returns the product's entries across all tables, most
// recently updated first.
func (r *resolver) PriceHistory(ctx context.Context, tenantID, productID uuid.UUID, params pagination.Params) (*HistoryResult, error) {
	result, err := r.repo.HistoryPage(ctx, tenantID, productID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price history")
	}
	return result, nil
}

// Invalidate is a no-op on the bare resolver; the cached decorator overrides
// it.
func (r *resolver) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	return nil
}

// customerTerms loads the customer's active discount and table assignment.
func (r *resolver) customerTerms(ctx context.Context, tenantID uuid.UUID, customerID *uuid.UUID, asOf time.Time) (decimal.Decimal, *uuid.UUID, error) {
	if customerID == nil {
		return decimal.Zero, nil, nil
	}

	cp, err := r.repo.FindActiveCustomerPricing(ctx, tenantID, *customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil, nil
		}
		return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer pricing")
	}
	if !cp.ValidAt(asOf) {
		return decimal.Zero, nil, nil
	}

	discount := cp.DiscountPercent
	if discount.IsZero() && cp.PriceCategoryCode != nil {
		categoryDiscount, err := r.repo.FindCategoryDiscount(ctx, tenantID, *cp.PriceCategoryCode)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category discount")
		}
		if err == nil {
			discount = categoryDiscount
		}
	}

	return discount, cp.PriceTableID, nil
}

// resolveFromTable loads and gates the candidate table before the tier
// lookup. Returns nil when the table cannot serve the product.
func (r *resolver) resolveFromTable(ctx context.Context, tenantID, tableID, productID uuid.UUID, qty int, asOf time.Time, discount decimal.Decimal, source string) (*ResolvedPrice, error) {
	table, err := r.repo.FindTableByID(ctx, tenantID, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price table")
	}
	if !table.IsActive || !table.ValidAt(asOf) {
		return nil, nil
	}
	return r.resolveFromEntries(ctx, table, productID, qty, asOf, discount, source)
}

// resolveFromEntries runs the tier lookup against one table and prices the
// match. Returns nil when no tier covers the quantity.
func (r *resolver) resolveFromEntries(ctx context.Context, table *models.PriceTable, productID uuid.UUID, qty int, asOf time.Time, discount decimal.Decimal, source string) (*ResolvedPrice, error) {
	entry, err := r.matchEntry(ctx, table.ID, productID, qty)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	tableID := table.ID
	resolved := &ResolvedPrice{
		ProductID:     productID,
		VATRate:       entry.VATRate,
		Currency:      table.Currency.String(),
		SourceTableID: &tableID,
		Source:        source,
	}

	if entry.PromoActiveAt(asOf) {
		// a promo replaces the price outright and never stacks with the
		// customer discount
		net, gross := promoPrices(entry)
		resolved.PriceNet = types.RoundMoney(net)
		resolved.PriceGross = types.RoundMoney(gross)
		resolved.IsPromo = true
		originalNet := types.RoundMoney(entry.PriceNet)
		originalGross := types.RoundMoney(entry.PriceGross)
		resolved.OriginalPriceNet = &originalNet
		resolved.OriginalPriceGross = &originalGross
		r.metrics.IncResolution(source, true)
		return resolved, nil
	}

	net, gross := entry.PriceNet, entry.PriceGross
	if discount.IsPositive() {
		net = net.Sub(types.PercentOf(net, discount))
		gross = gross.Sub(types.PercentOf(gross, discount))
		d := discount
		resolved.DiscountPercent = &d
		originalNet := types.RoundMoney(entry.PriceNet)
		originalGross := types.RoundMoney(entry.PriceGross)
		resolved.OriginalPriceNet = &originalNet
		resolved.OriginalPriceGross = &originalGross
	}
	resolved.PriceNet = types.RoundMoney(net)
	resolved.PriceGross = types.RoundMoney(gross)
	r.metrics.IncResolution(source, false)
	return resolved, nil
}

// matchEntry picks the highest tier whose quantity range covers qty.
func (r *resolver) matchEntry(ctx context.Context, tableID, productID uuid.UUID, qty int) (*models.PriceTableEntry, error) {
	entries, err := r.repo.ListEntriesForProduct(ctx, tableID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price entries")
	}
	for i := range entries {
		if entries[i].MatchesQuantity(qty) {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// resolveFromBasePrice prices from the catalog base price, or yields the
// zero result when the product is unknown or unpriced.
func (r *resolver) resolveFromBasePrice(ctx context.Context, tenantID, productID uuid.UUID, discount decimal.Decimal) (*ResolvedPrice, error) {
	defaultVAT := r.pricing.DefaultVATRate()

	product, err := r.products.FindByID(ctx, tenantID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.metrics.IncResolution(metrics.SourceNone, false)
			return zeroResult(productID, defaultVAT), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive || product.BasePrice.LessThanOrEqual(decimal.Zero) {
		r.metrics.IncResolution(metrics.SourceNone, false)
		return zeroResult(productID, defaultVAT), nil
	}

	vat := defaultVAT
	if product.VATRate != nil {
		vat = *product.VATRate
	}

	// base price is gross; derive net through the VAT rate
	gross := product.BasePrice
	divisor := decimal.NewFromInt(1).Add(vat.Div(decimal.NewFromInt(100)))
	net := gross.Div(divisor)

	resolved := &ResolvedPrice{
		ProductID: productID,
		VATRate:   vat,
		Currency:  enums.CurrencyPLN.String(),
		Source:    metrics.SourceBasePrice,
	}
	if discount.IsPositive() {
		originalNet := types.RoundMoney(net)
		originalGross := types.RoundMoney(gross)
		net = net.Sub(types.PercentOf(net, discount))
		gross = gross.Sub(types.PercentOf(gross, discount))
		d := discount
		resolved.DiscountPercent = &d
		resolved.OriginalPriceNet = &originalNet
		resolved.OriginalPriceGross = &originalGross
	}
	resolved.PriceNet = types.RoundMoney(net)
	resolved.PriceGross = types.RoundMoney(gross)
	r.metrics.IncResolution(metrics.SourceBasePrice, false)
	return resolved, nil
}

func promoPrices(entry *models.PriceTableEntry) (net, gross decimal.Decimal) {
	// promo price is net; the gross follows the entry's VAT rate
	net = *entry.PromoPrice
	factor := decimal.NewFromInt(1).Add(entry.VATRate.Div(decimal.NewFromInt(100)))
	gross = net.Mul(factor)
	return net, gross
}

func zeroResult(productID uuid.UUID, vat decimal.Decimal) *ResolvedPrice {
	return &ResolvedPrice{
		ProductID:  productID,
		PriceNet:   decimal.Zero,
		PriceGross: decimal.Zero,
		VATRate:    vat,
		Currency:   enums.CurrencyPLN.String(),
		Source:     metrics.SourceNone,
		IsPromo:    false,
	}
}
