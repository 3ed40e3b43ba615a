package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SurchargeTier is one step of a TIERED surcharge. To is nil for the
// open-ended final tier.
type SurchargeTier struct {
	From  decimal.Decimal  `json:"from"`
	To    *decimal.Decimal `json:"to,omitempty"`
	Value decimal.Decimal  `json:"value"`
}

// Contains reports whether base falls inside the tier range. The lower bound
// is inclusive; the upper bound is inclusive as well, matching how tier
// tables are published to customers.
func (t SurchargeTier) Contains(base decimal.Decimal) bool {
	if base.LessThan(t.From) {
		return false
	}
	if t.To == nil {
		return true
	}
	return base.LessThanOrEqual(*t.To)
}

// SurchargeTiers is the ordered jsonb column holding TIERED steps.
type SurchargeTiers []SurchargeTier

// Value implements driver.Valuer. A nil slice persists as NULL.
func (s SurchargeTiers) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal surcharge tiers: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner for the jsonb column.
func (s *SurchargeTiers) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported surcharge tiers source %T", value)
	}

	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Validate checks the structural invariants of a tier ladder: ascending,
// non-overlapping ranges, from below to, and an open end only on the last
// step.
func (s SurchargeTiers) Validate() error {
	for i, tier := range s {
		if tier.To != nil && !tier.From.LessThan(*tier.To) {
			return fmt.Errorf("tier %d: from must be below to", i)
		}
		if tier.To == nil && i != len(s)-1 {
			return fmt.Errorf("tier %d: only the last tier may be open-ended", i)
		}
		if i == 0 {
			continue
		}
		prev := s[i-1]
		if prev.To == nil {
			return fmt.Errorf("tier %d: previous tier is open-ended", i)
		}
		if tier.From.LessThan(*prev.To) {
			return fmt.Errorf("tier %d: overlaps previous tier", i)
		}
	}
	return nil
}

// Match returns the value of the tier containing base, if any.
func (s SurchargeTiers) Match(base decimal.Decimal) (decimal.Decimal, bool) {
	for _, tier := range s {
		if tier.Contains(base) {
			return tier.Value, true
		}
	}
	return decimal.Zero, false
}
