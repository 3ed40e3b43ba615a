package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. Matches both the Postgres and sqlite message forms.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
