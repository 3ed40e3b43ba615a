package pricecatalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/config"
	"github.com/fabrykasoft/pricing-engine/pkg/db"
	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
)

type stubInvalidator struct {
	calls int
}

func (s *stubInvalidator) Invalidate(ctx context.Context, tenantID uuid.UUID) error {
	s.calls++
	return nil
}

func newTestService(t *testing.T) (Service, *Repository, *stubInvalidator, *gorm.DB) {
	t.Helper()

	conn := setupCatalogTestDB(t)
	repo := NewRepository(conn)
	cache := &stubInvalidator{}
	svc, err := NewService(repo, db.NewFromConn(conn), cache, config.PricingConfig{RoundIncrement: 0.01})
	require.NoError(t, err)
	return svc, repo, cache, conn
}

func TestCreateTableDuplicateCodeConflict(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	_, err := svc.CreateTable(ctx, tenantID, CreateTableInput{Code: "STD", Name: "Standard"})
	require.NoError(t, err)

	_, err = svc.CreateTable(ctx, tenantID, CreateTableInput{Code: "STD", Name: "Standard again"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestSetDefaultTableKeepsSingleDefault(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	first, err := svc.CreateTable(ctx, tenantID, CreateTableInput{Code: "A", Name: "A"})
	require.NoError(t, err)
	second, err := svc.CreateTable(ctx, tenantID, CreateTableInput{Code: "B", Name: "B"})
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultTable(ctx, tenantID, first.ID))
	require.NoError(t, svc.SetDefaultTable(ctx, tenantID, second.ID))

	found, err := repo.FindDefaultTable(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	reloaded, err := repo.FindTableByID(ctx, tenantID, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
}

func TestSetDefaultTableRejectsInactive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	inactive := false
	table, err := svc.CreateTable(ctx, tenantID, CreateTableInput{Code: "OFF", Name: "Off", IsActive: &inactive})
	require.NoError(t, err)

	err = svc.SetDefaultTable(ctx, tenantID, table.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestDuplicateTableCopiesActiveEntries(t *testing.T) {
	svc, repo, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	source := newTestTable(t, conn, tenantID, "SRC", 5)
	newTestEntry(t, conn, source.ID, uuid.New(), "100", 1)
	newTestEntry(t, conn, source.ID, uuid.New(), "200", 1)
	inactive := newTestEntry(t, conn, source.ID, uuid.New(), "300", 1)
	require.NoError(t, conn.Model(inactive).Update("is_active", false).Error)

	clone, err := svc.DuplicateTable(ctx, tenantID, source.ID, DuplicateTableInput{Code: "COPY", Name: "Copy"})
	require.NoError(t, err)
	assert.Equal(t, 5, clone.Priority)
	assert.False(t, clone.IsDefault)

	cloned, err := repo.ListEntriesByTable(ctx, clone.ID)
	require.NoError(t, err)
	assert.Len(t, cloned, 2)

	// the source keeps all of its rows
	original, err := repo.ListEntriesByTable(ctx, source.ID)
	require.NoError(t, err)
	assert.Len(t, original, 3)
}

func TestBulkInsertEntriesSkipsCollisions(t *testing.T) {
	svc, _, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	table := newTestTable(t, conn, tenantID, "STD", 0)
	existing := uuid.New()
	newTestEntry(t, conn, table.ID, existing, "50", 1)

	rows := []CreateEntryInput{
		{ProductID: existing, PriceNet: decimal.NewFromInt(60), PriceGross: decimal.NewFromInt(74), VATRate: decimal.NewFromInt(23), MinQuantity: 1},
		{ProductID: uuid.New(), PriceNet: decimal.NewFromInt(10), PriceGross: decimal.NewFromInt(12), VATRate: decimal.NewFromInt(23), MinQuantity: 1},
		{ProductID: uuid.New(), PriceNet: decimal.NewFromInt(20), PriceGross: decimal.NewFromInt(25), VATRate: decimal.NewFromInt(23), MinQuantity: 1},
	}

	result, err := svc.BulkInsertEntries(ctx, tenantID, table.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, multierr.Errors(result.SkipErrs), 1)
}

func TestBulkAdjustPricesAppliesPercentAndRounds(t *testing.T) {
	svc, repo, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	table := newTestTable(t, conn, tenantID, "STD", 0)
	productID := uuid.New()
	newTestEntry(t, conn, table.ID, productID, "100", 1)

	result, err := svc.BulkAdjustPrices(ctx, tenantID, table.ID, BulkAdjustInput{
		Percent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	rows, err := repo.ListEntriesForProduct(ctx, table.ID, productID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].PriceNet.Equal(decimal.RequireFromString("110")), "got %s", rows[0].PriceNet)
}

func TestBulkAdjustPricesCustomIncrement(t *testing.T) {
	svc, repo, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	table := newTestTable(t, conn, tenantID, "STD", 0)
	productID := uuid.New()
	newTestEntry(t, conn, table.ID, productID, "99.99", 1)

	result, err := svc.BulkAdjustPrices(ctx, tenantID, table.ID, BulkAdjustInput{
		Percent: decimal.NewFromInt(3),
		RoundTo: decPtr("0.05"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	rows, err := repo.ListEntriesForProduct(ctx, table.ID, productID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// 99.99 * 1.03 = 102.9897 -> 103.00 on a 0.05 grid
	assert.True(t, rows[0].PriceNet.Equal(decimal.RequireFromString("103.00")), "got %s", rows[0].PriceNet)
}

func TestBulkAdjustPricesRejectsFullDiscount(t *testing.T) {
	svc, _, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	table := newTestTable(t, conn, tenantID, "STD", 0)

	_, err := svc.BulkAdjustPrices(ctx, tenantID, table.ID, BulkAdjustInput{
		Percent: decimal.NewFromInt(-100),
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDeleteCategoryBlockedWhileReferenced(t *testing.T) {
	svc, _, _, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	category, err := svc.CreateCategory(ctx, tenantID, CreateCategoryInput{Code: "RETAIL", Name: "Retail"})
	require.NoError(t, err)

	table := newTestTable(t, conn, tenantID, "STD", 0)
	require.NoError(t, conn.Model(&models.PriceTable{}).
		Where("id = ?", table.ID).
		Update("category_id", category.ID).Error)

	err = svc.DeleteCategory(ctx, tenantID, category.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

	// detach and retry
	require.NoError(t, conn.Model(&models.PriceTable{}).
		Where("id = ?", table.ID).
		Update("category_id", nil).Error)
	require.NoError(t, svc.DeleteCategory(ctx, tenantID, category.ID))
}

func TestWritesInvalidateCache(t *testing.T) {
	svc, _, cache, conn := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()

	table := newTestTable(t, conn, tenantID, "STD", 0)
	newTestEntry(t, conn, table.ID, uuid.New(), "100", 1)

	before := cache.calls
	_, err := svc.BulkAdjustPrices(ctx, tenantID, table.ID, BulkAdjustInput{Percent: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Greater(t, cache.calls, before)
}
