package pricecatalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/config"
	"github.com/fabrykasoft/pricing-engine/pkg/db"
	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
	"github.com/fabrykasoft/pricing-engine/pkg/validate"
)

// Service exposes price catalog management operations.
type Service interface {
	CreateCategory(ctx context.Context, tenantID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, tenantID, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error)
	GetCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*CategoryDTO, error)
	GetCategoryByCode(ctx context.Context, tenantID uuid.UUID, code string) (*CategoryDTO, error)
	ListCategories(ctx context.Context, tenantID uuid.UUID) ([]CategoryDTO, error)
	DeleteCategory(ctx context.Context, tenantID, categoryID uuid.UUID) error

	CreateTable(ctx context.Context, tenantID uuid.UUID, input CreateTableInput) (*TableDTO, error)
	UpdateTable(ctx context.Context, tenantID, tableID uuid.UUID, input UpdateTableInput) (*TableDTO, error)
	GetTable(ctx context.Context, tenantID, tableID uuid.UUID) (*TableDTO, error)
	GetTableByCode(ctx context.Context, tenantID uuid.UUID, code string) (*TableDTO, error)
	ListTables(ctx context.Context, tenantID uuid.UUID, input ListTablesInput) ([]TableDTO, error)
	DeleteTable(ctx context.Context, tenantID, tableID uuid.UUID) error
	SetDefaultTable(ctx context.Context, tenantID, tableID uuid.UUID) error
	DuplicateTable(ctx context.Context, tenantID, sourceID uuid.UUID, input DuplicateTableInput) (*TableDTO, error)

	CreateEntry(ctx context.Context, tenantID, tableID uuid.UUID, input CreateEntryInput) (*EntryDTO, error)
	UpdateEntry(ctx context.Context, tenantID, entryID uuid.UUID, input UpdateEntryInput) (*EntryDTO, error)
	DeleteEntry(ctx context.Context, tenantID, entryID uuid.UUID) error
	ListEntriesByTable(ctx context.Context, tenantID, tableID uuid.UUID) ([]EntryDTO, error)
	ListEntriesByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]EntryDTO, error)
	BulkInsertEntries(ctx context.Context, tenantID, tableID uuid.UUID, rows []CreateEntryInput) (*BulkInsertResult, error)
	BulkAdjustPrices(ctx context.Context, tenantID, tableID uuid.UUID, input BulkAdjustInput) (*BulkAdjustResult, error)
}

// CreateCategoryInput holds the validated payload to create a category.
type CreateCategoryInput struct {
	Code                   string          `json:"code" validate:"required,max=64"`
	Name                   string          `json:"name" validate:"required,max=255"`
	ParentID               *uuid.UUID      `json:"parent_id"`
	DefaultDiscountPercent decimal.Decimal `json:"default_discount_percent"`
	IsActive               *bool           `json:"is_active"`
	SortOrder              int             `json:"sort_order"`
}

// UpdateCategoryInput holds optional mutation values for a category.
type UpdateCategoryInput struct {
	Name                   *string          `json:"name" validate:"omitempty,max=255"`
	ParentID               *uuid.UUID       `json:"parent_id"`
	DefaultDiscountPercent *decimal.Decimal `json:"default_discount_percent"`
	IsActive               *bool            `json:"is_active"`
	SortOrder              *int             `json:"sort_order"`
}

// CreateTableInput holds the validated payload to create a price table.
type CreateTableInput struct {
	Code       string     `json:"code" validate:"required,max=64"`
	Name       string     `json:"name" validate:"required,max=255"`
	CategoryID *uuid.UUID `json:"category_id"`
	Currency   string     `json:"currency"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidTo    *time.Time `json:"valid_to"`
	Priority   int        `json:"priority"`
	PriceType  string     `json:"price_type"`
	IsActive   *bool      `json:"is_active"`
}

// UpdateTableInput holds optional mutation values for a price table.
type UpdateTableInput struct {
	Name       *string    `json:"name" validate:"omitempty,max=255"`
	CategoryID *uuid.UUID `json:"category_id"`
	Currency   *string    `json:"currency"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidTo    *time.Time `json:"valid_to"`
	Priority   *int       `json:"priority"`
	PriceType  *string    `json:"price_type"`
	IsActive   *bool      `json:"is_active"`
}

// ListTablesInput narrows the table listing.
type ListTablesInput struct {
	PriceType  *string    `json:"price_type"`
	ActiveOnly bool       `json:"active_only"`
	ValidAt    *time.Time `json:"valid_at"`
}

// DuplicateTableInput names the clone produced by DuplicateTable.
type DuplicateTableInput struct {
	Code string `json:"code" validate:"required,max=64"`
	Name string `json:"name" validate:"required,max=255"`
}

// CreateEntryInput holds the validated payload to create a table entry.
type CreateEntryInput struct {
	ProductID      uuid.UUID        `json:"product_id" validate:"required"`
	PriceNet       decimal.Decimal  `json:"price_net"`
	PriceGross     decimal.Decimal  `json:"price_gross"`
	VATRate        decimal.Decimal  `json:"vat_rate"`
	PromoPrice     *decimal.Decimal `json:"promo_price"`
	PromoValidFrom *time.Time       `json:"promo_valid_from"`
	PromoValidTo   *time.Time       `json:"promo_valid_to"`
	MinQuantity    int              `json:"min_quantity" validate:"omitempty,min=1"`
	MaxQuantity    *int             `json:"max_quantity" validate:"omitempty,min=1"`
	IsActive       *bool            `json:"is_active"`
}

// UpdateEntryInput holds optional mutation values for a table entry.
type UpdateEntryInput struct {
	PriceNet       *decimal.Decimal `json:"price_net"`
	PriceGross     *decimal.Decimal `json:"price_gross"`
	VATRate        *decimal.Decimal `json:"vat_rate"`
	PromoPrice     *decimal.Decimal `json:"promo_price"`
	PromoValidFrom *time.Time       `json:"promo_valid_from"`
	PromoValidTo   *time.Time       `json:"promo_valid_to"`
	MinQuantity    *int             `json:"min_quantity" validate:"omitempty,min=1"`
	MaxQuantity    *int             `json:"max_quantity" validate:"omitempty,min=1"`
	IsActive       *bool            `json:"is_active"`
}

// BulkAdjustInput tunes a percentage price adjustment across a table.
type BulkAdjustInput struct {
	Percent decimal.Decimal  `json:"percent"`
	RoundTo *decimal.Decimal `json:"round_to"`
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID) error
}

// service implements the price catalog service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	cache    cacheInvalidator
	pricing  config.PricingConfig
}

// NewService constructs a price catalog service instance. The cache
// invalidator is optional.
func NewService(repo *Repository, dbClient *db.Client, cache cacheInvalidator, pricing config.PricingConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("price catalog repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		cache:    cache,
		pricing:  pricing,
	}, nil
}

// CreateCategory creates a price category with a tenant-unique code.
func (s *service) CreateCategory(ctx context.Context, tenantID uuid.UUID, input CreateCategoryInput) (*CategoryDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.DefaultDiscountPercent.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_discount_percent cannot be negative")
	}

	category := &models.PriceCategory{
		TenantID:               tenantID,
		Code:                   input.Code,
		Name:                   input.Name,
		ParentID:               input.ParentID,
		DefaultDiscountPercent: input.DefaultDiscountPercent,
		IsActive:               boolOrDefault(input.IsActive, true),
		SortOrder:              input.SortOrder,
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("category code %q already exists", input.Code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price category")
	}

	s.invalidate(ctx, tenantID)
	return NewCategoryDTO(created), nil
}

// UpdateCategory applies partial changes to a category.
func (s *service) UpdateCategory(ctx context.Context, tenantID, categoryID uuid.UUID, input UpdateCategoryInput) (*CategoryDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	category, err := s.loadCategory(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		category.Name = *input.Name
	}
	if input.ParentID != nil {
		if *input.ParentID == categoryID {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be its own parent")
		}
		category.ParentID = input.ParentID
	}
	if input.DefaultDiscountPercent != nil {
		if input.DefaultDiscountPercent.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "default_discount_percent cannot be negative")
		}
		category.DefaultDiscountPercent = *input.DefaultDiscountPercent
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}

	updated, err := s.repo.UpdateCategory(ctx, category)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price category")
	}

	s.invalidate(ctx, tenantID)
	return NewCategoryDTO(updated), nil
}

// GetCategory returns one category by id.
func (s *service) GetCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*CategoryDTO, error) {
	category, err := s.loadCategory(ctx, tenantID, categoryID)
	if err != nil {
		return nil, err
	}
	return NewCategoryDTO(category), nil
}

// GetCategoryByCode returns one category by its tenant-unique code.
func (s *service) GetCategoryByCode(ctx context.Context, tenantID uuid.UUID, code string) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("price category %q not found", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price category")
	}
	return NewCategoryDTO(category), nil
}

// ListCategories returns all of a tenant's categories ordered by sort order.
func (s *service) ListCategories(ctx context.Context, tenantID uuid.UUID) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price categories")
	}
	dtos := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewCategoryDTO(&rows[i]))
	}
	return dtos, nil
}

// DeleteCategory removes a category. Deletion is blocked while children or
// attached tables reference it.
func (s *service) DeleteCategory(ctx context.Context, tenantID, categoryID uuid.UUID) error {
	if _, err := s.loadCategory(ctx, tenantID, categoryID); err != nil {
		return err
	}

	children, err := s.repo.CountCategoryChildren(ctx, tenantID, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category children")
	}
	if children > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category has child categories")
	}

	tables, err := s.repo.CountTablesInCategory(ctx, tenantID, categoryID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count category tables")
	}
	if tables > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "category has attached price tables")
	}

	if err := s.repo.DeleteCategory(ctx, tenantID, categoryID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price category")
	}

	s.invalidate(ctx, tenantID)
	return nil
}

// CreateTable creates a price table with a tenant-unique code.
func (s *service) CreateTable(ctx context.Context, tenantID uuid.UUID, input CreateTableInput) (*TableDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	currency := enums.CurrencyPLN
	if input.Currency != "" {
		parsed, err := enums.ParseCurrency(input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		currency = parsed
	}

	priceType := enums.PriceTypeStandard
	if input.PriceType != "" {
		parsed, err := enums.ParsePriceType(input.PriceType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		priceType = parsed
	}

	if err := validateWindow(input.ValidFrom, input.ValidTo); err != nil {
		return nil, err
	}

	table := &models.PriceTable{
		TenantID:   tenantID,
		Code:       input.Code,
		Name:       input.Name,
		CategoryID: input.CategoryID,
		Currency:   currency,
		ValidFrom:  input.ValidFrom,
		ValidTo:    input.ValidTo,
		Priority:   input.Priority,
		PriceType:  priceType,
		IsActive:   boolOrDefault(input.IsActive, true),
	}

	created, err := s.repo.CreateTable(ctx, table)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("price table code %q already exists", input.Code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price table")
	}

	s.invalidate(ctx, tenantID)
	return NewTableDTO(created), nil
}

// UpdateTable applies partial changes to a table.
func (s *service) UpdateTable(ctx context.Context, tenantID, tableID uuid.UUID, input UpdateTableInput) (*TableDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	table, err := s.loadTable(ctx, tenantID, tableID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		table.Name = *input.Name
	}
	if input.CategoryID != nil {
		table.CategoryID = input.CategoryID
	}
	if input.Currency != nil {
		parsed, err := enums.ParseCurrency(*input.Currency)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		table.Currency = parsed
	}
	if input.ValidFrom != nil {
		table.ValidFrom = input.ValidFrom
	}
	if input.ValidTo != nil {
		table.ValidTo = input.ValidTo
	}
	if err := validateWindow(table.ValidFrom, table.ValidTo); err != nil {
		return nil, err
	}
	if input.Priority != nil {
		table.Priority = *input.Priority
	}
	if input.PriceType != nil {
		parsed, err := enums.ParsePriceType(*input.PriceType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		table.PriceType = parsed
	}
	if input.IsActive != nil {
		table.IsActive = *input.IsActive
	}

	updated, err := s.repo.UpdateTable(ctx, table)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price table")
	}

	s.invalidate(ctx, tenantID)
	return NewTableDTO(updated), nil
}

// GetTableByCode returns one price table by its tenant-unique code.
func (s *service) GetTableByCode(ctx context.Context, tenantID uuid.UUID, code string) (*TableDTO, error) {
	table, err := s.repo.FindTableByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("price table %q not found", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price table")
	}
	return NewTableDTO(table), nil
}

// GetTable returns one price table by id.
func (s *service) GetTable(ctx context.Context, tenantID, tableID uuid.UUID) (*TableDTO, error) {
	table, err := s.loadTable(ctx, tenantID, tableID)
	if err != nil {
		return nil, err
	}
	return NewTableDTO(table), nil
}

// ListTables returns a tenant's price tables with optional filters.
func (s *service) ListTables(ctx context.Context, tenantID uuid.UUID, input ListTablesInput) ([]TableDTO, error) {
	filters := TableListFilters{
		ActiveOnly: input.ActiveOnly,
		ValidAt:    input.ValidAt,
	}
	if input.PriceType != nil {
		parsed, err := enums.ParsePriceType(*input.PriceType)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		filters.PriceType = &parsed
	}

	rows, err := s.repo.ListTables(ctx, tenantID, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price tables")
	}
	dtos := make([]TableDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewTableDTO(&rows[i]))
	}
	return dtos, nil
}

// DeleteTable removes a table and its entries.
func (s *service) DeleteTable(ctx context.Context, tenantID, tableID uuid.UUID) error {
	if _, err := s.loadTable(ctx, tenantID, tableID); err != nil {
		return err
	}
	if err := s.repo.DeleteTable(ctx, tenantID, tableID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price table")
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// SetDefaultTable makes the given table the tenant's single default. The
// previous default is unset inside the same transaction so concurrent reads
// never observe two defaults.
func (s *service) SetDefaultTable(ctx context.Context, tenantID, tableID uuid.UUID) error {
	table, err := s.loadTable(ctx, tenantID, tableID)
	if err != nil {
		return err
	}
	if !table.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "inactive table cannot be the default")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.ClearDefaultTable(ctx, tenantID); err != nil {
			return err
		}
		return txRepo.MarkTableDefault(ctx, tenantID, tableID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default price table")
	}

	s.invalidate(ctx, tenantID)
	return nil
}

// DuplicateTable clones a table's metadata and its active entries under a new
// code inside one transaction. The source table is untouched.
func (s *service) DuplicateTable(ctx context.Context, tenantID, sourceID uuid.UUID, input DuplicateTableInput) (*TableDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	source, err := s.loadTable(ctx, tenantID, sourceID)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListActiveEntriesByTable(ctx, sourceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load source entries")
	}

	clone := &models.PriceTable{
		TenantID:   tenantID,
		Code:       input.Code,
		Name:       input.Name,
		CategoryID: source.CategoryID,
		Currency:   source.Currency,
		ValidFrom:  source.ValidFrom,
		ValidTo:    source.ValidTo,
		Priority:   source.Priority,
		PriceType:  source.PriceType,
		IsDefault:  false,
		IsActive:   source.IsActive,
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateTable(ctx, clone); err != nil {
			return err
		}
		for i := range entries {
			copied := entries[i]
			copied.ID = uuid.New()
			copied.TableID = clone.ID
			if _, err := txRepo.CreateEntry(ctx, &copied); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("price table code %q already exists", input.Code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "duplicate price table")
	}

	s.invalidate(ctx, tenantID)
	return NewTableDTO(clone), nil
}

// CreateEntry adds one product price to a table.
func (s *service) CreateEntry(ctx context.Context, tenantID, tableID uuid.UUID, input CreateEntryInput) (*EntryDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if _, err := s.loadTable(ctx, tenantID, tableID); err != nil {
		return nil, err
	}

	entry, err := entryFromInput(tableID, input)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateEntry(ctx, entry)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("entry for product %s at min_quantity %d already exists", input.ProductID, entry.MinQuantity))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price entry")
	}

	s.invalidate(ctx, tenantID)
	return NewEntryDTO(created), nil
}

// UpdateEntry applies partial changes to an entry.
func (s *service) UpdateEntry(ctx context.Context, tenantID, entryID uuid.UUID, input UpdateEntryInput) (*EntryDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	entry, err := s.loadEntry(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	if input.PriceNet != nil {
		if input.PriceNet.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_net cannot be negative")
		}
		entry.PriceNet = *input.PriceNet
	}
	if input.PriceGross != nil {
		if input.PriceGross.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_gross cannot be negative")
		}
		entry.PriceGross = *input.PriceGross
	}
	if input.VATRate != nil {
		entry.VATRate = *input.VATRate
	}
	if input.PromoPrice != nil {
		entry.PromoPrice = input.PromoPrice
	}
	if input.PromoValidFrom != nil {
		entry.PromoValidFrom = input.PromoValidFrom
	}
	if input.PromoValidTo != nil {
		entry.PromoValidTo = input.PromoValidTo
	}
	if input.MinQuantity != nil {
		entry.MinQuantity = *input.MinQuantity
	}
	if input.MaxQuantity != nil {
		entry.MaxQuantity = input.MaxQuantity
	}
	if entry.MaxQuantity != nil && *entry.MaxQuantity < entry.MinQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity cannot be below min_quantity")
	}
	if input.IsActive != nil {
		entry.IsActive = *input.IsActive
	}

	updated, err := s.repo.UpdateEntry(ctx, entry)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("entry for product %s at min_quantity %d already exists", entry.ProductID, entry.MinQuantity))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price entry")
	}

	s.invalidate(ctx, tenantID)
	return NewEntryDTO(updated), nil
}

// DeleteEntry removes one entry row.
func (s *service) DeleteEntry(ctx context.Context, tenantID, entryID uuid.UUID) error {
	if _, err := s.loadEntry(ctx, tenantID, entryID); err != nil {
		return err
	}
	if err := s.repo.DeleteEntry(ctx, entryID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price entry")
	}
	s.invalidate(ctx, tenantID)
	return nil
}

// ListEntriesByTable returns all entries of a tenant's table.
func (s *service) ListEntriesByTable(ctx context.Context, tenantID, tableID uuid.UUID) ([]EntryDTO, error) {
	if _, err := s.loadTable(ctx, tenantID, tableID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListEntriesByTable(ctx, tableID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price entries")
	}
	return NewEntryDTOs(rows), nil
}

// ListEntriesByProduct returns every entry referencing the product across the
// tenant's tables, most recently updated first.
func (s *service) ListEntriesByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]EntryDTO, error) {
	rows, err := s.repo.ListEntriesByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price entries")
	}
	return NewEntryDTOs(rows), nil
}

// BulkInsertEntries inserts many entries into a table. Rows colliding on the
// (product, min_quantity) key are skipped and reported, never fatal.
func (s *service) BulkInsertEntries(ctx context.Context, tenantID, tableID uuid.UUID, rows []CreateEntryInput) (*BulkInsertResult, error) {
	if _, err := s.loadTable(ctx, tenantID, tableID); err != nil {
		return nil, err
	}

	result := &BulkInsertResult{}
	var skipErrs error
	for i, input := range rows {
		if err := validate.Struct(input); err != nil {
			skipErrs = multierr.Append(skipErrs, fmt.Errorf("row %d: %w", i, err))
			result.Skipped++
			continue
		}
		entry, err := entryFromInput(tableID, input)
		if err != nil {
			skipErrs = multierr.Append(skipErrs, fmt.Errorf("row %d: %w", i, err))
			result.Skipped++
			continue
		}
		created, err := s.repo.CreateEntry(ctx, entry)
		if err != nil {
			if db.IsUniqueViolation(err) {
				skipErrs = multierr.Append(skipErrs,
					fmt.Errorf("row %d: product %s min_quantity %d already priced", i, input.ProductID, entry.MinQuantity))
				result.Skipped++
				continue
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk insert price entries")
		}
		result.Inserted++
		result.Entries = append(result.Entries, *NewEntryDTO(created))
	}
	result.SkipErrs = skipErrs

	if result.Inserted > 0 {
		s.invalidate(ctx, tenantID)
	}
	return result, nil
}

// BulkAdjustPrices scales every active entry's net and gross price by the
// given percentage, rounding to the requested increment.
func (s *service) BulkAdjustPrices(ctx context.Context, tenantID, tableID uuid.UUID, input BulkAdjustInput) (*BulkAdjustResult, error) {
	if _, err := s.loadTable(ctx, tenantID, tableID); err != nil {
		return nil, err
	}
	if input.Percent.LessThanOrEqual(decimal.NewFromInt(-100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "percent must be above -100")
	}

	increment := s.pricing.DefaultRoundIncrement()
	if input.RoundTo != nil {
		if input.RoundTo.LessThanOrEqual(decimal.Zero) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "round_to must be positive")
		}
		increment = *input.RoundTo
	}

	entries, err := s.repo.ListActiveEntriesByTable(ctx, tableID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price entries")
	}

	result := &BulkAdjustResult{}
	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i := range entries {
			entry := entries[i]
			entry.PriceNet = types.RoundToIncrement(types.ApplyPercentChange(entry.PriceNet, input.Percent), increment)
			entry.PriceGross = types.RoundToIncrement(types.ApplyPercentChange(entry.PriceGross, input.Percent), increment)
			updated, err := txRepo.UpdateEntry(ctx, &entry)
			if err != nil {
				return err
			}
			result.Updated++
			result.Entries = append(result.Entries, *NewEntryDTO(updated))
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bulk adjust prices")
	}

	s.invalidate(ctx, tenantID)
	return result, nil
}

func (s *service) loadCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*models.PriceCategory, error) {
	category, err := s.repo.FindCategoryByID(ctx, tenantID, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price category")
	}
	return category, nil
}

func (s *service) loadTable(ctx context.Context, tenantID, tableID uuid.UUID) (*models.PriceTable, error) {
	table, err := s.repo.FindTableByID(ctx, tenantID, tableID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price table")
	}
	return table, nil
}

// loadEntry fetches an entry and verifies its table belongs to the tenant.
func (s *service) loadEntry(ctx context.Context, tenantID, entryID uuid.UUID) (*models.PriceTableEntry, error) {
	entry, err := s.repo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price entry not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price entry")
	}
	if _, err := s.loadTable(ctx, tenantID, entry.TableID); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price entry not found")
	}
	return entry, nil
}

func (s *service) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	// best effort; a stale cache entry expires on its own TTL
	_ = s.cache.Invalidate(ctx, tenantID)
}

func entryFromInput(tableID uuid.UUID, input CreateEntryInput) (*models.PriceTableEntry, error) {
	if input.PriceNet.IsNegative() || input.PriceGross.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	if input.VATRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vat_rate cannot be negative")
	}

	minQty := input.MinQuantity
	if minQty == 0 {
		minQty = 1
	}
	if input.MaxQuantity != nil && *input.MaxQuantity < minQty {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max_quantity cannot be below min_quantity")
	}
	if err := validateWindow(input.PromoValidFrom, input.PromoValidTo); err != nil {
		return nil, err
	}

	return &models.PriceTableEntry{
		TableID:        tableID,
		ProductID:      input.ProductID,
		PriceNet:       input.PriceNet,
		PriceGross:     input.PriceGross,
		VATRate:        input.VATRate,
		PromoPrice:     input.PromoPrice,
		PromoValidFrom: input.PromoValidFrom,
		PromoValidTo:   input.PromoValidTo,
		MinQuantity:    minQty,
		MaxQuantity:    input.MaxQuantity,
		IsActive:       boolOrDefault(input.IsActive, true),
	}, nil
}

func validateWindow(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_to")
	}
	return nil
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
