package surcharges

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
)

func setupSurchargeTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS surcharges (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  value TEXT NOT NULL,
  min_value TEXT,
  max_value TEXT,
  tiers TEXT,
  category_codes TEXT,
  product_ids TEXT,
  min_order_value TEXT,
  max_order_value TEXT,
  is_required INTEGER NOT NULL DEFAULT 0,
  valid_from DATETIME,
  valid_to DATETIME,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (tenant_id, code)
);`
	require.NoError(t, conn.Exec(ddl).Error)
	return conn
}

func newTestSurchargeService(t *testing.T) Service {
	t.Helper()

	conn := setupSurchargeTestDB(t)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return svc
}

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func TestCreateSurchargeDuplicateCode(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "FUEL", Name: "Fuel", Type: "FIXED", Value: dec("25"),
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "FUEL", Name: "Fuel again", Type: "FIXED", Value: dec("30"),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestCreateRejectsEmptyAllowLists(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "CAT", Name: "Cat", Type: "FIXED", Value: dec("5"),
		CategoryCodes: []string{},
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "PROD", Name: "Prod", Type: "FIXED", Value: dec("5"),
		ProductIDs: types.UUIDList{},
	})
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCreateValidatesTiers(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	// TIERED without a ladder
	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "T1", Name: "T1", Type: "TIERED",
	})
	require.Error(t, err)

	// ladder on a non-TIERED type
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "T2", Name: "T2", Type: "FIXED", Value: dec("5"),
		Tiers: types.SurchargeTiers{{From: dec("0"), Value: dec("10")}},
	})
	require.Error(t, err)

	// overlapping steps
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "T3", Name: "T3", Type: "TIERED",
		Tiers: types.SurchargeTiers{
			{From: dec("0"), To: decPtr("1000"), Value: dec("50")},
			{From: dec("500"), Value: dec("20")},
		},
	})
	require.Error(t, err)

	// a valid ladder passes
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "T4", Name: "T4", Type: "TIERED",
		Tiers: types.SurchargeTiers{
			{From: dec("0"), To: decPtr("1000"), Value: dec("50")},
			{From: dec("1000"), Value: dec("20")},
		},
	})
	require.NoError(t, err)
}

func TestCalculateSinglePercentWithClamp(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	created, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "HANDLING", Name: "Handling", Type: "PERCENT",
		Value:    dec("2"),
		MinValue: decPtr("10"),
		MaxValue: decPtr("15"),
	})
	require.NoError(t, err)

	// 2% of 1000 exceeds the cap
	amount, err := svc.CalculateSingle(ctx, tenantID, created.ID, dec("1000"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("15")), "got %s", amount)

	// 2% of 100 sits below the floor
	amount, err = svc.CalculateSingle(ctx, tenantID, created.ID, dec("100"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("10")), "got %s", amount)
}

func TestCalculateSingleTiered(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	created, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "DELIVERY", Name: "Delivery", Type: "TIERED",
		Tiers: types.SurchargeTiers{
			{From: dec("0"), To: decPtr("1000"), Value: dec("50")},
			{From: dec("1000"), To: decPtr("5000"), Value: dec("20")},
			{From: dec("5000"), Value: dec("0")},
		},
	})
	require.NoError(t, err)

	amount, err := svc.CalculateSingle(ctx, tenantID, created.ID, dec("1500"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("20")), "got %s", amount)

	amount, err = svc.CalculateSingle(ctx, tenantID, created.ID, dec("6000"))
	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "got %s", amount)
}

func TestCalculateSingleTieredBelowFirstTierUsesRate(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	// ladder starts at 100, so smaller bases fall back to the flat rate
	created, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "FREIGHT", Name: "Freight", Type: "TIERED",
		Value: dec("7"),
		Tiers: types.SurchargeTiers{
			{From: dec("100"), To: decPtr("1000"), Value: dec("50")},
			{From: dec("1000"), Value: dec("20")},
		},
	})
	require.NoError(t, err)

	amount, err := svc.CalculateSingle(ctx, tenantID, created.ID, dec("50"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("7")), "got %s", amount)

	amount, err = svc.CalculateSingle(ctx, tenantID, created.ID, dec("500"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("50")), "got %s", amount)
}

func TestCalculateMultipleBasesPerType(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "PALLET", Name: "Pallet", Type: "FIXED", Value: dec("40"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "WEIGHT", Name: "Weight", Type: "PER_KG", Value: dec("2.5"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "CUTTING", Name: "Cutting", Type: "PER_UNIT", Value: dec("3"),
	})
	require.NoError(t, err)

	results, err := svc.CalculateMultiple(ctx, tenantID, OrderContext{
		OrderValue:  dec("2000"),
		TotalWeight: dec("10"),
		UnitCount:   4,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	byCode := map[string]CalculatedSurcharge{}
	for _, r := range results {
		byCode[r.Code] = r
	}
	assert.True(t, byCode["PALLET"].Amount.Equal(dec("40")))
	assert.True(t, byCode["WEIGHT"].Amount.Equal(dec("25")), "got %s", byCode["WEIGHT"].Amount)
	assert.True(t, byCode["CUTTING"].Amount.Equal(dec("12")), "got %s", byCode["CUTTING"].Amount)
}

func TestCalculateMultipleFiltersByOrderValue(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "SMALL", Name: "Small order fee", Type: "FIXED", Value: dec("15"),
		MaxOrderValue: decPtr("500"),
	})
	require.NoError(t, err)

	applied, err := svc.CalculateMultiple(ctx, tenantID, OrderContext{OrderValue: dec("300")})
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "SMALL", applied[0].Code)

	skipped, err := svc.CalculateMultiple(ctx, tenantID, OrderContext{OrderValue: dec("900")})
	require.NoError(t, err)
	assert.Empty(t, skipped)
}

func TestCalculateMultipleFiltersByAllowLists(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	matchedProduct := uuid.New()

	_, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "GLASS", Name: "Glass handling", Type: "FIXED", Value: dec("60"),
		CategoryCodes: []string{"GLASS"},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "CUSTOM", Name: "Custom product fee", Type: "FIXED", Value: dec("90"),
		ProductIDs: types.UUIDList{matchedProduct},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "ALWAYS", Name: "Base fee", Type: "FIXED", Value: dec("10"),
	})
	require.NoError(t, err)

	// order touching neither list only collects the unrestricted fee
	results, err := svc.CalculateMultiple(ctx, tenantID, OrderContext{
		OrderValue:    dec("100"),
		CategoryCodes: []string{"WOOD"},
		ProductIDs:    []uuid.UUID{uuid.New()},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ALWAYS", results[0].Code)

	// matching both lists collects all three
	results, err = svc.CalculateMultiple(ctx, tenantID, OrderContext{
		OrderValue:    dec("100"),
		CategoryCodes: []string{"GLASS"},
		ProductIDs:    []uuid.UUID{matchedProduct},
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestCalculateMultipleRestrictsToRequestedIDs(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "A", Name: "A", Type: "FIXED", Value: dec("5"),
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "B", Name: "B", Type: "FIXED", Value: dec("7"),
	})
	require.NoError(t, err)

	results, err := svc.CalculateMultiple(ctx, tenantID, OrderContext{
		OrderValue:   dec("100"),
		SurchargeIDs: []uuid.UUID{first.ID},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].Code)
}

func TestUpdateSurchargeRevalidates(t *testing.T) {
	svc := newTestSurchargeService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	created, err := svc.Create(ctx, tenantID, CreateSurchargeInput{
		Code: "FUEL", Name: "Fuel", Type: "FIXED", Value: dec("25"),
	})
	require.NoError(t, err)

	negative := dec("-5")
	_, err = svc.Update(ctx, tenantID, created.ID, UpdateSurchargeInput{Value: &negative})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	raised := dec("30")
	updated, err := svc.Update(ctx, tenantID, created.ID, UpdateSurchargeInput{Value: &raised})
	require.NoError(t, err)
	assert.True(t, updated.Value.Equal(raised))
}
