package costs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/internal/pricing"
	"github.com/fabrykasoft/pricing-engine/pkg/db"
	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
	"github.com/fabrykasoft/pricing-engine/pkg/validate"
)

// Service exposes cost management and margin calculation.
type Service interface {
	CreateCost(ctx context.Context, tenantID uuid.UUID, input CreateCostInput) (*CostDTO, error)
	UpdateCost(ctx context.Context, tenantID, costID uuid.UUID, input UpdateCostInput) (*CostDTO, error)
	GetCost(ctx context.Context, tenantID, costID uuid.UUID) (*CostDTO, error)
	ListCostsByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]CostDTO, error)
	DeleteCost(ctx context.Context, tenantID, costID uuid.UUID) error
	SetDefaultCost(ctx context.Context, tenantID, costID uuid.UUID) error
	FindCostByProduct(ctx context.Context, tenantID, productID uuid.UUID, category, supplier *string) (*CostDTO, error)

	SetCustomerPricing(ctx context.Context, tenantID uuid.UUID, input CustomerPricingInput) (*CustomerPricingDTO, error)
	GetCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) (*CustomerPricingDTO, error)
	ListCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) ([]CustomerPricingDTO, error)
	DeleteCustomerPricing(ctx context.Context, tenantID, pricingID uuid.UUID) error

	CalculateMargin(ctx context.Context, tenantID, productID uuid.UUID, salePrice decimal.Decimal) (*MarginResult, error)
	SuggestSalePrice(ctx context.Context, tenantID, productID uuid.UUID, targetMarginPercent *decimal.Decimal) (*SuggestedPrice, error)
	ProductsWithLowMargin(ctx context.Context, tenantID uuid.UUID, threshold decimal.Decimal) ([]LowMarginProduct, error)
}

// CreateCostInput holds the validated payload to create a product cost.
type CreateCostInput struct {
	ProductID           uuid.UUID        `json:"product_id" validate:"required"`
	Supplier            *string          `json:"supplier"`
	Category            *string          `json:"category"`
	PurchasePrice       decimal.Decimal  `json:"purchase_price"`
	ShippingCost        *decimal.Decimal `json:"shipping_cost"`
	HandlingCost        *decimal.Decimal `json:"handling_cost"`
	CustomsCost         *decimal.Decimal `json:"customs_cost"`
	OtherCost           *decimal.Decimal `json:"other_cost"`
	TargetMarginPercent *decimal.Decimal `json:"target_margin_percent"`
	MinSalePrice        *decimal.Decimal `json:"min_sale_price"`
	ValidFrom           *time.Time       `json:"valid_from"`
	ValidTo             *time.Time       `json:"valid_to"`
	IsDefault           bool             `json:"is_default"`
	IsActive            *bool            `json:"is_active"`
}

// UpdateCostInput holds optional mutation values for a product cost.
type UpdateCostInput struct {
	Supplier            *string          `json:"supplier"`
	Category            *string          `json:"category"`
	PurchasePrice       *decimal.Decimal `json:"purchase_price"`
	ShippingCost        *decimal.Decimal `json:"shipping_cost"`
	HandlingCost        *decimal.Decimal `json:"handling_cost"`
	CustomsCost         *decimal.Decimal `json:"customs_cost"`
	OtherCost           *decimal.Decimal `json:"other_cost"`
	TargetMarginPercent *decimal.Decimal `json:"target_margin_percent"`
	MinSalePrice        *decimal.Decimal `json:"min_sale_price"`
	ValidFrom           *time.Time       `json:"valid_from"`
	ValidTo             *time.Time       `json:"valid_to"`
	IsActive            *bool            `json:"is_active"`
}

// CustomerPricingInput holds the payload activating a customer's terms.
type CustomerPricingInput struct {
	CustomerID        uuid.UUID        `json:"customer_id" validate:"required"`
	PriceTableID      *uuid.UUID       `json:"price_table_id"`
	PriceCategoryCode *string          `json:"price_category_code"`
	DiscountPercent   decimal.Decimal  `json:"discount_percent"`
	CreditLimit       *decimal.Decimal `json:"credit_limit"`
	PaymentTermDays   *int             `json:"payment_term_days" validate:"omitempty,min=0"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidTo           *time.Time       `json:"valid_to"`
}

type priceResolver interface {
	Resolve(ctx context.Context, input pricing.ResolveInput) (*pricing.ResolvedPrice, error)
}

// service implements the cost service.
type service struct {
	repo     *Repository
	dbClient *db.Client
	resolver priceResolver
}

// NewService constructs a cost service instance. The resolver feeds the
// low-margin report with live prices.
func NewService(repo *Repository, dbClient *db.Client, resolver priceResolver) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cost repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("price resolver required")
	}
	return &service{
		repo:     repo,
		dbClient: dbClient,
		resolver: resolver,
	}, nil
}

// CreateCost inserts a cost row, aggregating TotalCost at write time.
func (s *service) CreateCost(ctx context.Context, tenantID uuid.UUID, input CreateCostInput) (*CostDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.PurchasePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase_price cannot be negative")
	}

	cost := &models.ProductCost{
		TenantID:            tenantID,
		ProductID:           input.ProductID,
		Supplier:            input.Supplier,
		Category:            input.Category,
		PurchasePrice:       input.PurchasePrice,
		ShippingCost:        input.ShippingCost,
		HandlingCost:        input.HandlingCost,
		CustomsCost:         input.CustomsCost,
		OtherCost:           input.OtherCost,
		TargetMarginPercent: input.TargetMarginPercent,
		MinSalePrice:        input.MinSalePrice,
		ValidFrom:           input.ValidFrom,
		ValidTo:             input.ValidTo,
		IsDefault:           input.IsDefault,
		IsActive:            input.IsActive == nil || *input.IsActive,
	}
	cost.TotalCost = cost.ComputeTotalCost()

	var created *models.ProductCost
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if cost.IsDefault {
			if err := txRepo.ClearDefaultCost(ctx, tenantID, input.ProductID); err != nil {
				return err
			}
		}
		var err error
		created, err = txRepo.CreateCost(ctx, cost)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already has a default cost")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product cost")
	}
	return NewCostDTO(created), nil
}

// UpdateCost applies partial changes, recomputing TotalCost on every write.
func (s *service) UpdateCost(ctx context.Context, tenantID, costID uuid.UUID, input UpdateCostInput) (*CostDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	cost, err := s.loadCost(ctx, tenantID, costID)
	if err != nil {
		return nil, err
	}

	if input.Supplier != nil {
		cost.Supplier = input.Supplier
	}
	if input.Category != nil {
		cost.Category = input.Category
	}
	if input.PurchasePrice != nil {
		if input.PurchasePrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase_price cannot be negative")
		}
		cost.PurchasePrice = *input.PurchasePrice
	}
	if input.ShippingCost != nil {
		cost.ShippingCost = input.ShippingCost
	}
	if input.HandlingCost != nil {
		cost.HandlingCost = input.HandlingCost
	}
	if input.CustomsCost != nil {
		cost.CustomsCost = input.CustomsCost
	}
	if input.OtherCost != nil {
		cost.OtherCost = input.OtherCost
	}
	if input.TargetMarginPercent != nil {
		cost.TargetMarginPercent = input.TargetMarginPercent
	}
	if input.MinSalePrice != nil {
		cost.MinSalePrice = input.MinSalePrice
	}
	if input.ValidFrom != nil {
		cost.ValidFrom = input.ValidFrom
	}
	if input.ValidTo != nil {
		cost.ValidTo = input.ValidTo
	}
	if input.IsActive != nil {
		cost.IsActive = *input.IsActive
	}
	cost.TotalCost = cost.ComputeTotalCost()

	updated, err := s.repo.UpdateCost(ctx, cost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product cost")
	}
	return NewCostDTO(updated), nil
}

// GetCost returns one cost row by id.
func (s *service) GetCost(ctx context.Context, tenantID, costID uuid.UUID) (*CostDTO, error) {
	cost, err := s.loadCost(ctx, tenantID, costID)
	if err != nil {
		return nil, err
	}
	return NewCostDTO(cost), nil
}

// ListCostsByProduct returns a product's active cost rows, default first.
func (s *service) ListCostsByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]CostDTO, error) {
	rows, err := s.repo.ListCostsByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product costs")
	}
	dtos := make([]CostDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewCostDTO(&rows[i]))
	}
	return dtos, nil
}

// DeleteCost removes a cost row.
func (s *service) DeleteCost(ctx context.Context, tenantID, costID uuid.UUID) error {
	if _, err := s.loadCost(ctx, tenantID, costID); err != nil {
		return err
	}
	if err := s.repo.DeleteCost(ctx, tenantID, costID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product cost")
	}
	return nil
}

// SetDefaultCost makes one cost row the product's default, unsetting the
// previous default in the same transaction.
func (s *service) SetDefaultCost(ctx context.Context, tenantID, costID uuid.UUID) error {
	cost, err := s.loadCost(ctx, tenantID, costID)
	if err != nil {
		return err
	}
	if !cost.IsActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "inactive cost cannot be the default")
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.ClearDefaultCost(ctx, tenantID, cost.ProductID); err != nil {
			return err
		}
		return txRepo.MarkCostDefault(ctx, tenantID, costID)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set default cost")
	}
	return nil
}

// FindCostByProduct returns the best active cost match for the filters,
// falling back to the product's default cost.
func (s *service) FindCostByProduct(ctx context.Context, tenantID, productID uuid.UUID, category, supplier *string) (*CostDTO, error) {
	cost, err := s.findCost(ctx, tenantID, productID, category, supplier)
	if err != nil {
		return nil, err
	}
	if cost == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cost recorded for product")
	}
	return NewCostDTO(cost), nil
}

// SetCustomerPricing activates new pricing terms for a customer. The
// previous active row is deactivated inside the same transaction so the
// single-active invariant holds.
func (s *service) SetCustomerPricing(ctx context.Context, tenantID uuid.UUID, input CustomerPricingInput) (*CustomerPricingDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.DiscountPercent.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount_percent cannot be negative")
	}
	if input.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount_percent cannot exceed 100")
	}
	if input.ValidFrom != nil && input.ValidTo != nil && !input.ValidFrom.Before(*input.ValidTo) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_to")
	}

	row := &models.CustomerPricing{
		TenantID:          tenantID,
		CustomerID:        input.CustomerID,
		PriceTableID:      input.PriceTableID,
		PriceCategoryCode: input.PriceCategoryCode,
		DiscountPercent:   input.DiscountPercent,
		CreditLimit:       input.CreditLimit,
		PaymentTermDays:   input.PaymentTermDays,
		ValidFrom:         input.ValidFrom,
		ValidTo:           input.ValidTo,
		IsActive:          true,
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeactivateCustomerPricing(ctx, tenantID, input.CustomerID); err != nil {
			return err
		}
		_, err := txRepo.CreateCustomerPricing(ctx, row)
		return err
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set customer pricing")
	}
	return NewCustomerPricingDTO(row), nil
}

// GetCustomerPricing returns the customer's active terms.
func (s *service) GetCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) (*CustomerPricingDTO, error) {
	row, err := s.repo.FindActiveCustomerPricing(ctx, tenantID, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer pricing not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer pricing")
	}
	return NewCustomerPricingDTO(row), nil
}

// ListCustomerPricing returns all of a customer's pricing rows, newest first.
func (s *service) ListCustomerPricing(ctx context.Context, tenantID, customerID uuid.UUID) ([]CustomerPricingDTO, error) {
	rows, err := s.repo.ListCustomerPricing(ctx, tenantID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer pricing")
	}
	dtos := make([]CustomerPricingDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewCustomerPricingDTO(&rows[i]))
	}
	return dtos, nil
}

// DeleteCustomerPricing removes one pricing row.
func (s *service) DeleteCustomerPricing(ctx context.Context, tenantID, pricingID uuid.UUID) error {
	if _, err := s.repo.FindCustomerPricingByID(ctx, tenantID, pricingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "customer pricing not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer pricing")
	}
	if err := s.repo.DeleteCustomerPricing(ctx, tenantID, pricingID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer pricing")
	}
	return nil
}

// CalculateMargin checks a sale price against the product's cost basis. A
// product without any cost row is a hard NotFound, unlike price resolution
// which degrades to zero.
func (s *service) CalculateMargin(ctx context.Context, tenantID, productID uuid.UUID, salePrice decimal.Decimal) (*MarginResult, error) {
	cost, err := s.findCost(ctx, tenantID, productID, nil, nil)
	if err != nil {
		return nil, err
	}
	if cost == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cost recorded for product")
	}

	total := cost.EffectiveTotalCost()
	marginValue := salePrice.Sub(total)
	marginPercent := decimal.Zero
	if total.IsPositive() {
		marginPercent = marginValue.Div(total).Mul(decimal.NewFromInt(100))
	}

	result := &MarginResult{
		ProductID:     productID,
		SalePrice:     types.RoundMoney(salePrice),
		TotalCost:     types.RoundMoney(total),
		MarginValue:   types.RoundMoney(marginValue),
		MarginPercent: marginPercent.Round(2),
	}
	// with no configured target there is nothing to miss
	result.IsAboveTarget = true
	if cost.TargetMarginPercent != nil {
		result.IsAboveTarget = result.MarginPercent.GreaterThanOrEqual(*cost.TargetMarginPercent)
	}
	if cost.MinSalePrice != nil {
		result.IsBelowMinPrice = salePrice.LessThan(*cost.MinSalePrice)
	}
	return result, nil
}

// SuggestSalePrice derives the sale price hitting the target margin. With no
// explicit target the cost row's own target is used.
func (s *service) SuggestSalePrice(ctx context.Context, tenantID, productID uuid.UUID, targetMarginPercent *decimal.Decimal) (*SuggestedPrice, error) {
	cost, err := s.findCost(ctx, tenantID, productID, nil, nil)
	if err != nil {
		return nil, err
	}
	if cost == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no cost recorded for product")
	}

	target := targetMarginPercent
	if target == nil {
		target = cost.TargetMarginPercent
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target margin percent required")
	}

	total := cost.EffectiveTotalCost()
	suggested := types.ApplyPercentChange(total, *target)
	if cost.MinSalePrice != nil && suggested.LessThan(*cost.MinSalePrice) {
		suggested = *cost.MinSalePrice
	}

	return &SuggestedPrice{
		ProductID:      productID,
		SuggestedPrice: types.RoundMoney(suggested),
		TotalCost:      types.RoundMoney(total),
		MinSalePrice:   cost.MinSalePrice,
	}, nil
}

// ProductsWithLowMargin recomputes every targeted product's margin against
// its live resolved price, returning those below the threshold, worst first.
func (s *service) ProductsWithLowMargin(ctx context.Context, tenantID uuid.UUID, threshold decimal.Decimal) ([]LowMarginProduct, error) {
	rows, err := s.repo.ListDefaultCostsWithTarget(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list costed products")
	}

	report := make([]LowMarginProduct, 0)
	for i := range rows {
		cost := rows[i]
		resolved, err := s.resolver.Resolve(ctx, pricing.ResolveInput{
			TenantID:  tenantID,
			ProductID: cost.ProductID,
		})
		if err != nil {
			return nil, err
		}

		total := cost.EffectiveTotalCost()
		marginValue := resolved.PriceNet.Sub(total)
		marginPercent := decimal.Zero
		if total.IsPositive() {
			marginPercent = marginValue.Div(total).Mul(decimal.NewFromInt(100))
		}
		if marginPercent.GreaterThanOrEqual(threshold) {
			continue
		}

		report = append(report, LowMarginProduct{
			ProductID:           cost.ProductID,
			TotalCost:           types.RoundMoney(total),
			PriceNet:            resolved.PriceNet,
			MarginValue:         types.RoundMoney(marginValue),
			MarginPercent:       marginPercent.Round(2),
			TargetMarginPercent: cost.TargetMarginPercent,
		})
	}

	sort.SliceStable(report, func(i, j int) bool {
		return report[i].MarginPercent.LessThan(report[j].MarginPercent)
	})
	return report, nil
}

func (s *service) loadCost(ctx context.Context, tenantID, costID uuid.UUID) (*models.ProductCost, error) {
	cost, err := s.repo.FindCostByID(ctx, tenantID, costID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product cost not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product cost")
	}
	return cost, nil
}

// findCost returns the best active match for the filters, else the default
// row, else nil.
func (s *service) findCost(ctx context.Context, tenantID, productID uuid.UUID, category, supplier *string) (*models.ProductCost, error) {
	rows, err := s.repo.ListCostsByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product costs")
	}

	now := time.Now()
	var fallback *models.ProductCost
	for i := range rows {
		cost := &rows[i]
		if !cost.ValidAt(now) {
			continue
		}
		if fallback == nil && cost.IsDefault {
			fallback = cost
		}
		if category != nil && (cost.Category == nil || *cost.Category != *category) {
			continue
		}
		if supplier != nil && (cost.Supplier == nil || *cost.Supplier != *supplier) {
			continue
		}
		if category != nil || supplier != nil {
			return cost, nil
		}
		if cost.IsDefault {
			return cost, nil
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	// no default: any valid row beats nothing
	for i := range rows {
		if rows[i].ValidAt(now) {
			return &rows[i], nil
		}
	}
	return nil, nil
}
