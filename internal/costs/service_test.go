package costs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/internal/pricing"
	"github.com/fabrykasoft/pricing-engine/pkg/db"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
)

func setupCostTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	costsDDL := `
CREATE TABLE IF NOT EXISTS product_costs (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  supplier TEXT,
  category TEXT,
  purchase_price TEXT NOT NULL,
  shipping_cost TEXT,
  handling_cost TEXT,
  customs_cost TEXT,
  other_cost TEXT,
  total_cost TEXT NOT NULL,
  target_margin_percent TEXT,
  min_sale_price TEXT,
  valid_from DATETIME,
  valid_to DATETIME,
  is_default INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	customerDDL := `
CREATE TABLE IF NOT EXISTS customer_pricing (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  price_table_id TEXT,
  price_category_code TEXT,
  discount_percent TEXT NOT NULL DEFAULT '0',
  credit_limit TEXT,
  payment_term_days INTEGER,
  valid_from DATETIME,
  valid_to DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, conn.Exec(costsDDL).Error)
	require.NoError(t, conn.Exec(customerDDL).Error)
	return conn
}

// stubResolver serves fixed net prices keyed by product.
type stubResolver struct {
	prices map[uuid.UUID]decimal.Decimal
}

func (s *stubResolver) Resolve(ctx context.Context, input pricing.ResolveInput) (*pricing.ResolvedPrice, error) {
	price, ok := s.prices[input.ProductID]
	if !ok {
		price = decimal.Zero
	}
	return &pricing.ResolvedPrice{
		ProductID: input.ProductID,
		PriceNet:  price,
		Currency:  "PLN",
	}, nil
}

func newTestCostService(t *testing.T) (Service, *stubResolver, *gorm.DB) {
	t.Helper()

	conn := setupCostTestDB(t)
	resolver := &stubResolver{prices: map[uuid.UUID]decimal.Decimal{}}
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), resolver)
	require.NoError(t, err)
	return svc, resolver, conn
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func TestCreateCostAggregatesTotal(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	created, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:     uuid.New(),
		PurchasePrice: dec("100"),
		ShippingCost:  decPtr("10"),
		HandlingCost:  decPtr("5"),
	})
	require.NoError(t, err)
	assert.True(t, created.TotalCost.Equal(dec("115")), "got %s", created.TotalCost)

	updated, err := svc.UpdateCost(ctx, tenantID, created.ID, UpdateCostInput{
		PurchasePrice: decPtr("120"),
	})
	require.NoError(t, err)
	assert.True(t, updated.TotalCost.Equal(dec("135")), "got %s", updated.TotalCost)
}

func TestCalculateMargin(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()

	_, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:           productID,
		PurchasePrice:       dec("100"),
		TargetMarginPercent: decPtr("25"),
		MinSalePrice:        decPtr("110"),
		IsDefault:           true,
	})
	require.NoError(t, err)

	result, err := svc.CalculateMargin(ctx, tenantID, productID, dec("130"))
	require.NoError(t, err)
	assert.True(t, result.TotalCost.Equal(dec("100")))
	assert.True(t, result.MarginValue.Equal(dec("30")), "got %s", result.MarginValue)
	assert.True(t, result.MarginPercent.Equal(dec("30")), "got %s", result.MarginPercent)
	assert.True(t, result.IsAboveTarget)
	assert.False(t, result.IsBelowMinPrice)

	// below both the target and the floor
	result, err = svc.CalculateMargin(ctx, tenantID, productID, dec("105"))
	require.NoError(t, err)
	assert.False(t, result.IsAboveTarget)
	assert.True(t, result.IsBelowMinPrice)
}

func TestCalculateMarginWithoutTarget(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()

	_, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:     productID,
		PurchasePrice: dec("100"),
		IsDefault:     true,
	})
	require.NoError(t, err)

	// no target configured means there is no target to miss
	result, err := svc.CalculateMargin(ctx, tenantID, productID, dec("101"))
	require.NoError(t, err)
	assert.True(t, result.MarginPercent.Equal(dec("1")), "got %s", result.MarginPercent)
	assert.True(t, result.IsAboveTarget)
	assert.False(t, result.IsBelowMinPrice)
}

func TestCalculateMarginWithoutCost(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()

	_, err := svc.CalculateMargin(ctx, uuid.New(), uuid.New(), dec("100"))
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSuggestSalePrice(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()

	_, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:           productID,
		PurchasePrice:       dec("100"),
		TargetMarginPercent: decPtr("30"),
		MinSalePrice:        decPtr("145"),
		IsDefault:           true,
	})
	require.NoError(t, err)

	// the row target yields 130, but the floor wins
	suggested, err := svc.SuggestSalePrice(ctx, tenantID, productID, nil)
	require.NoError(t, err)
	assert.True(t, suggested.SuggestedPrice.Equal(dec("145")), "got %s", suggested.SuggestedPrice)

	// an explicit target above the floor is used as-is
	suggested, err = svc.SuggestSalePrice(ctx, tenantID, productID, decPtr("60"))
	require.NoError(t, err)
	assert.True(t, suggested.SuggestedPrice.Equal(dec("160")), "got %s", suggested.SuggestedPrice)
}

func TestSuggestSalePriceRequiresTarget(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()

	_, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:     productID,
		PurchasePrice: dec("100"),
		IsDefault:     true,
	})
	require.NoError(t, err)

	_, err = svc.SuggestSalePrice(ctx, tenantID, productID, nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestSetDefaultCostKeepsSingleDefault(t *testing.T) {
	svc, _, conn := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	productID := uuid.New()

	first, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:     productID,
		PurchasePrice: dec("100"),
		IsDefault:     true,
	})
	require.NoError(t, err)
	second, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
		ProductID:     productID,
		PurchasePrice: dec("95"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultCost(ctx, tenantID, second.ID))

	var defaults int64
	require.NoError(t, conn.Table("product_costs").
		Where("tenant_id = ? AND product_id = ? AND is_default = ?", tenantID, productID, true).
		Count(&defaults).Error)
	assert.EqualValues(t, 1, defaults)

	reloaded, err := svc.GetCost(ctx, tenantID, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestSetCustomerPricingKeepsSingleActive(t *testing.T) {
	svc, _, conn := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	customerID := uuid.New()

	_, err := svc.SetCustomerPricing(ctx, tenantID, CustomerPricingInput{
		CustomerID:      customerID,
		DiscountPercent: dec("5"),
	})
	require.NoError(t, err)

	second, err := svc.SetCustomerPricing(ctx, tenantID, CustomerPricingInput{
		CustomerID:      customerID,
		DiscountPercent: dec("8"),
	})
	require.NoError(t, err)

	var active int64
	require.NoError(t, conn.Table("customer_pricing").
		Where("tenant_id = ? AND customer_id = ? AND is_active = ?", tenantID, customerID, true).
		Count(&active).Error)
	assert.EqualValues(t, 1, active)

	current, err := svc.GetCustomerPricing(ctx, tenantID, customerID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.True(t, current.DiscountPercent.Equal(dec("8")))

	history, err := svc.ListCustomerPricing(ctx, tenantID, customerID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSetCustomerPricingRejectsBadDiscount(t *testing.T) {
	svc, _, _ := newTestCostService(t)
	ctx := context.Background()

	_, err := svc.SetCustomerPricing(ctx, uuid.New(), CustomerPricingInput{
		CustomerID:      uuid.New(),
		DiscountPercent: dec("120"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestProductsWithLowMarginSortsWorstFirst(t *testing.T) {
	svc, resolver, _ := newTestCostService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	thinID := uuid.New()
	healthyID := uuid.New()
	worstID := uuid.New()

	for _, c := range []struct {
		productID uuid.UUID
		cost      string
		price     string
	}{
		{thinID, "100", "110"},   // 10% margin
		{healthyID, "100", "150"}, // 50% margin
		{worstID, "100", "102"},  // 2% margin
	} {
		_, err := svc.CreateCost(ctx, tenantID, CreateCostInput{
			ProductID:           c.productID,
			PurchasePrice:       dec(c.cost),
			TargetMarginPercent: decPtr("30"),
			IsDefault:           true,
		})
		require.NoError(t, err)
		resolver.prices[c.productID] = dec(c.price)
	}

	report, err := svc.ProductsWithLowMargin(ctx, tenantID, dec("30"))
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, worstID, report[0].ProductID)
	assert.Equal(t, thinID, report[1].ProductID)
	assert.True(t, report[0].MarginPercent.Equal(dec("2")), "got %s", report[0].MarginPercent)
}
