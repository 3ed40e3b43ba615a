package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UUIDList is an optional id allow-list stored as jsonb. A nil list persists
// as NULL and means "applies to all"; an empty non-nil list means "applies to
// nothing". The two states are deliberately distinct.
type UUIDList []uuid.UUID

// Value implements driver.Valuer.
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal uuid list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *UUIDList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported uuid list source %T", value)
	}

	if len(raw) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(raw, l)
}

// Restricts reports whether the list constrains matching at all.
func (l UUIDList) Restricts() bool {
	return l != nil
}

// Contains reports whether id is present in the list.
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, candidate := range l {
		if candidate == id {
			return true
		}
	}
	return false
}

// Intersects reports whether any of the provided ids is present.
func (l UUIDList) Intersects(ids []uuid.UUID) bool {
	for _, id := range ids {
		if l.Contains(id) {
			return true
		}
	}
	return false
}
