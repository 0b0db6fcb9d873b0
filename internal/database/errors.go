package database

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrConstraint marks a write rejected by a UNIQUE constraint.
var ErrConstraint = errors.New("unique constraint violated")

// ErrNotFound is returned when a lookup by name matches no row.
var ErrNotFound = errors.New("not found")

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// classify wraps driver errors that callers need to distinguish.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrConstraint, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
