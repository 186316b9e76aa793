package database

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
)

// Sentinel errors for database operations.
var (
	// ErrUnknownDriver is returned when Config.Driver is not a supported driver.
	ErrUnknownDriver = errors.New("database: unknown driver")

	// ErrFunctionsUnsupported is returned when registering a custom SQL
	// function on a connection that does not use DriverCGO.
	ErrFunctionsUnsupported = errors.New("database: custom functions require the sqlite3 driver")

	// ErrMigrationNotFound is returned when an applied migration has no
	// matching file to roll back with.
	ErrMigrationNotFound = errors.New("database: migration not found")
)

// primaryCodeMask extracts the primary result code from an extended one.
const primaryCodeMask = 0xff

// SQLite primary result codes of interest to callers.
const (
	CodeError      = 1
	CodeBusy       = 5
	CodeLocked     = 6
	CodeReadOnly   = 8
	CodeConstraint = 19
)

// IsResourceError reports whether err was raised by SQLite or database/sql
// rather than by the caller's own logic.
func IsResourceError(err error) bool {
	if _, ok := ErrorCode(err); ok {
		return true
	}
	return errors.Is(err, sql.ErrNoRows) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone)
}

// ErrorCode returns the primary SQLite result code carried by err, for
// either driver.
func ErrorCode(err error) (int, bool) {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return int(cgoErr.Code), true
	}

	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() & primaryCodeMask, true
	}

	return 0, false
}
