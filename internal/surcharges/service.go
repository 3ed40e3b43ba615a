package surcharges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabrykasoft/pricing-engine/pkg/db"
	"github.com/fabrykasoft/pricing-engine/pkg/db/models"
	"github.com/fabrykasoft/pricing-engine/pkg/enums"
	pkgerrors "github.com/fabrykasoft/pricing-engine/pkg/errors"
	"github.com/fabrykasoft/pricing-engine/pkg/metrics"
	"github.com/fabrykasoft/pricing-engine/pkg/types"
	"github.com/fabrykasoft/pricing-engine/pkg/validate"
)

// Service exposes surcharge catalog management and calculation.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, input CreateSurchargeInput) (*SurchargeDTO, error)
	Update(ctx context.Context, tenantID, surchargeID uuid.UUID, input UpdateSurchargeInput) (*SurchargeDTO, error)
	Get(ctx context.Context, tenantID, surchargeID uuid.UUID) (*SurchargeDTO, error)
	GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*SurchargeDTO, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]SurchargeDTO, error)
	Delete(ctx context.Context, tenantID, surchargeID uuid.UUID) error

	CalculateSingle(ctx context.Context, tenantID, surchargeID uuid.UUID, baseValue decimal.Decimal) (decimal.Decimal, error)
	CalculateMultiple(ctx context.Context, tenantID uuid.UUID, order OrderContext) ([]CalculatedSurcharge, error)
}

// CreateSurchargeInput holds the validated payload to create a surcharge.
type CreateSurchargeInput struct {
	Code          string               `json:"code" validate:"required,max=64"`
	Name          string               `json:"name" validate:"required,max=255"`
	Type          string               `json:"type" validate:"required"`
	Value         decimal.Decimal      `json:"value"`
	MinValue      *decimal.Decimal     `json:"min_value"`
	MaxValue      *decimal.Decimal     `json:"max_value"`
	Tiers         types.SurchargeTiers `json:"tiers"`
	CategoryCodes []string             `json:"category_codes"`
	ProductIDs    types.UUIDList       `json:"product_ids"`
	MinOrderValue *decimal.Decimal     `json:"min_order_value"`
	MaxOrderValue *decimal.Decimal     `json:"max_order_value"`
	IsRequired    bool                 `json:"is_required"`
	ValidFrom     *time.Time           `json:"valid_from"`
	ValidTo       *time.Time           `json:"valid_to"`
	IsActive      *bool                `json:"is_active"`
}

// UpdateSurchargeInput holds optional mutation values for a surcharge.
type UpdateSurchargeInput struct {
	Name          *string               `json:"name" validate:"omitempty,max=255"`
	Type          *string               `json:"type"`
	Value         *decimal.Decimal      `json:"value"`
	MinValue      *decimal.Decimal      `json:"min_value"`
	MaxValue      *decimal.Decimal      `json:"max_value"`
	Tiers         *types.SurchargeTiers `json:"tiers"`
	CategoryCodes *[]string             `json:"category_codes"`
	ProductIDs    *types.UUIDList       `json:"product_ids"`
	MinOrderValue *decimal.Decimal      `json:"min_order_value"`
	MaxOrderValue *decimal.Decimal      `json:"max_order_value"`
	IsRequired    *bool                 `json:"is_required"`
	ValidFrom     *time.Time            `json:"valid_from"`
	ValidTo       *time.Time            `json:"valid_to"`
	IsActive      *bool                 `json:"is_active"`
}

// service implements the surcharge service.
type service struct {
	repo    *Repository
	metrics *metrics.PricingMetrics
}

// NewService constructs a surcharge service instance. Metrics are optional.
func NewService(repo *Repository, pricingMetrics *metrics.PricingMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("surcharge repository required")
	}
	return &service{
		repo:    repo,
		metrics: pricingMetrics,
	}, nil
}

// Create adds a surcharge with a tenant-unique code.
func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreateSurchargeInput) (*SurchargeDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	surchargeType, err := enums.ParseSurchargeType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}

	surcharge := &models.Surcharge{
		TenantID:      tenantID,
		Code:          input.Code,
		Name:          input.Name,
		Type:          surchargeType,
		Value:         input.Value,
		MinValue:      input.MinValue,
		MaxValue:      input.MaxValue,
		Tiers:         input.Tiers,
		CategoryCodes: input.CategoryCodes,
		ProductIDs:    input.ProductIDs,
		MinOrderValue: input.MinOrderValue,
		MaxOrderValue: input.MaxOrderValue,
		IsRequired:    input.IsRequired,
		ValidFrom:     input.ValidFrom,
		ValidTo:       input.ValidTo,
		IsActive:      input.IsActive == nil || *input.IsActive,
	}

	if err := validateSurcharge(surcharge); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, surcharge)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("surcharge code %q already exists", input.Code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create surcharge")
	}
	return NewSurchargeDTO(created), nil
}

// Update applies partial changes to a surcharge.
func (s *service) Update(ctx context.Context, tenantID, surchargeID uuid.UUID, input UpdateSurchargeInput) (*SurchargeDTO, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	surcharge, err := s.load(ctx, tenantID, surchargeID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		surcharge.Name = *input.Name
	}
	if input.Type != nil {
		parsed, err := enums.ParseSurchargeType(*input.Type)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		surcharge.Type = parsed
	}
	if input.Value != nil {
		surcharge.Value = *input.Value
	}
	if input.MinValue != nil {
		surcharge.MinValue = input.MinValue
	}
	if input.MaxValue != nil {
		surcharge.MaxValue = input.MaxValue
	}
	if input.Tiers != nil {
		surcharge.Tiers = *input.Tiers
	}
	if input.CategoryCodes != nil {
		surcharge.CategoryCodes = *input.CategoryCodes
	}
	if input.ProductIDs != nil {
		surcharge.ProductIDs = *input.ProductIDs
	}
	if input.MinOrderValue != nil {
		surcharge.MinOrderValue = input.MinOrderValue
	}
	if input.MaxOrderValue != nil {
		surcharge.MaxOrderValue = input.MaxOrderValue
	}
	if input.IsRequired != nil {
		surcharge.IsRequired = *input.IsRequired
	}
	if input.ValidFrom != nil {
		surcharge.ValidFrom = input.ValidFrom
	}
	if input.ValidTo != nil {
		surcharge.ValidTo = input.ValidTo
	}
	if input.IsActive != nil {
		surcharge.IsActive = *input.IsActive
	}

	if err := validateSurcharge(surcharge); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, surcharge)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update surcharge")
	}
	return NewSurchargeDTO(updated), nil
}

// Get returns one surcharge by id.
func (s *service) Get(ctx context.Context, tenantID, surchargeID uuid.UUID) (*SurchargeDTO, error) {
	surcharge, err := s.load(ctx, tenantID, surchargeID)
	if err != nil {
		return nil, err
	}
	return NewSurchargeDTO(surcharge), nil
}

// GetByCode returns one surcharge by its tenant-unique code.
func (s *service) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*SurchargeDTO, error) {
	surcharge, err := s.repo.FindByCode(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("surcharge %q not found", code))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load surcharge")
	}
	return NewSurchargeDTO(surcharge), nil
}

// List returns a tenant's surcharges ordered by code.
func (s *service) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]SurchargeDTO, error) {
	rows, err := s.repo.List(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list surcharges")
	}
	dtos := make([]SurchargeDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewSurchargeDTO(&rows[i]))
	}
	return dtos, nil
}

// Delete removes a surcharge.
func (s *service) Delete(ctx context.Context, tenantID, surchargeID uuid.UUID) error {
	if _, err := s.load(ctx, tenantID, surchargeID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, tenantID, surchargeID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete surcharge")
	}
	return nil
}

// CalculateSingle evaluates one surcharge against a caller-supplied base
// value, clamped to the surcharge bounds.
func (s *service) CalculateSingle(ctx context.Context, tenantID, surchargeID uuid.UUID, baseValue decimal.Decimal) (decimal.Decimal, error) {
	surcharge, err := s.load(ctx, tenantID, surchargeID)
	if err != nil {
		return decimal.Zero, err
	}
	return calculateAmount(surcharge, baseValue), nil
}

// CalculateMultiple evaluates every applicable surcharge against the order.
func (s *service) CalculateMultiple(ctx context.Context, tenantID uuid.UUID, order OrderContext) ([]CalculatedSurcharge, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration("calculate_surcharges", time.Since(started))
	}()

	asOf := order.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	rows, err := s.repo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list surcharges")
	}

	results := make([]CalculatedSurcharge, 0, len(rows))
	for i := range rows {
		surcharge := rows[i]
		if !applies(&surcharge, order, asOf) {
			continue
		}

		base := baseMetric(&surcharge, order)
		results = append(results, CalculatedSurcharge{
			SurchargeID: surcharge.ID,
			Code:        surcharge.Code,
			Name:        surcharge.Name,
			Type:        surcharge.Type.String(),
			BaseValue:   base,
			Amount:      calculateAmount(&surcharge, base),
			IsRequired:  surcharge.IsRequired,
		})
	}
	return results, nil
}

func (s *service) load(ctx context.Context, tenantID, surchargeID uuid.UUID) (*models.Surcharge, error) {
	surcharge, err := s.repo.FindByID(ctx, tenantID, surchargeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "surcharge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load surcharge")
	}
	return surcharge, nil
}

// applies runs the filter chain deciding whether a surcharge matches the
// order. A NULL allow-list matches everything; an empty non-NULL list
// matches nothing.
func applies(surcharge *models.Surcharge, order OrderContext, asOf time.Time) bool {
	if !surcharge.ValidAt(asOf) {
		return false
	}

	if len(order.SurchargeIDs) > 0 && !containsID(order.SurchargeIDs, surcharge.ID) {
		return false
	}

	if surcharge.MinOrderValue != nil && order.OrderValue.LessThan(*surcharge.MinOrderValue) {
		return false
	}
	if surcharge.MaxOrderValue != nil && order.OrderValue.GreaterThan(*surcharge.MaxOrderValue) {
		return false
	}

	if surcharge.CategoryCodes != nil && !intersectsStrings(surcharge.CategoryCodes, order.CategoryCodes) {
		return false
	}
	if surcharge.ProductIDs.Restricts() && !surcharge.ProductIDs.Intersects(order.ProductIDs) {
		return false
	}
	return true
}

// baseMetric picks the order measure the surcharge type charges against.
func baseMetric(surcharge *models.Surcharge, order OrderContext) decimal.Decimal {
	switch surcharge.Type {
	case enums.SurchargeTypePercent, enums.SurchargeTypeTiered:
		return order.OrderValue
	case enums.SurchargeTypePerM2:
		return order.TotalArea
	case enums.SurchargeTypePerMB:
		return order.TotalLength
	case enums.SurchargeTypePerKG:
		return order.TotalWeight
	case enums.SurchargeTypePerUnit:
		return decimal.NewFromInt(int64(order.UnitCount))
	default:
		return decimal.NewFromInt(1)
	}
}

// calculateAmount applies the per-type formula and clamps the result.
func calculateAmount(surcharge *models.Surcharge, base decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch surcharge.Type {
	case enums.SurchargeTypeFixed:
		amount = surcharge.Value
	case enums.SurchargeTypePercent:
		amount = types.PercentOf(base, surcharge.Value)
	case enums.SurchargeTypeTiered:
		matched, ok := surcharge.Tiers.Match(base)
		if !ok {
			// below the first tier the flat rate applies
			matched = surcharge.Value
		}
		amount = matched
	default:
		if surcharge.Type.IsPerMeasure() {
			amount = surcharge.Value.Mul(base)
		}
	}

	amount = types.Clamp(amount, surcharge.MinValue, surcharge.MaxValue)
	return types.RoundMoney(amount)
}

// validateSurcharge checks the structural invariants before any write.
func validateSurcharge(surcharge *models.Surcharge) error {
	if surcharge.Value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "value cannot be negative")
	}
	if surcharge.MinValue != nil && surcharge.MaxValue != nil && surcharge.MinValue.GreaterThan(*surcharge.MaxValue) {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_value cannot exceed max_value")
	}
	if surcharge.MinOrderValue != nil && surcharge.MaxOrderValue != nil && surcharge.MinOrderValue.GreaterThan(*surcharge.MaxOrderValue) {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_order_value cannot exceed max_order_value")
	}
	if surcharge.ValidFrom != nil && surcharge.ValidTo != nil && !surcharge.ValidFrom.Before(*surcharge.ValidTo) {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid_from must be before valid_to")
	}

	// an empty non-NULL allow-list would match nothing; reject it so the
	// state is never produced through this engine
	if surcharge.CategoryCodes != nil && len(surcharge.CategoryCodes) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "category_codes must be omitted or non-empty")
	}
	if surcharge.ProductIDs != nil && len(surcharge.ProductIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_ids must be omitted or non-empty")
	}

	if surcharge.Type == enums.SurchargeTypeTiered {
		if len(surcharge.Tiers) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "tiered surcharge requires tiers")
		}
		if err := surcharge.Tiers.Validate(); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
	} else if len(surcharge.Tiers) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "tiers are only valid on TIERED surcharges")
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func intersectsStrings(allowList []string, values []string) bool {
	for _, value := range values {
		for _, allowed := range allowList {
			if allowed == value {
				return true
			}
		}
	}
	return false
}
