package store

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when a write violates a UNIQUE constraint.
var ErrDuplicate = errors.New("duplicate value")

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure. It accepts both primary and extended result codes.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
