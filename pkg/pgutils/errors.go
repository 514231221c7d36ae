// Package pgutils classifies PostgreSQL errors independently of the driver
// that produced them.
package pgutils

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgreSQL error codes
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeNotNullViolation     = "23502"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
	CodeUndefinedTable       = "42P01"
	CodeUndefinedFunction    = "42883"
)

// SQLState extracts the SQLSTATE code from an error returned by pgx, lib/pq or
// bun's pgdriver. It returns "" when err carries no code.
func SQLState(err error) string {
	if err == nil {
		return ""
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var bunErr pgdriver.Error
	if errors.As(err, &bunErr) {
		return bunErr.Field('C')
	}
	return ""
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, CodeForeignKeyViolation)
}

func IsNotNullViolation(err error) bool {
	return hasCode(err, CodeNotNullViolation)
}

// IsUndefinedObject reports a missing table or function, which usually means
// the schema migrations have not been applied.
func IsUndefinedObject(err error) bool {
	return hasCode(err, CodeUndefinedTable) || hasCode(err, CodeUndefinedFunction)
}

// Class returns a short label for logging: the constraint kind for integrity
// violations, "schema" for missing objects, "" otherwise.
func Class(err error) string {
	switch {
	case IsUniqueViolation(err):
		return "unique_violation"
	case IsForeignKeyViolation(err):
		return "foreign_key_violation"
	case IsNotNullViolation(err):
		return "not_null_violation"
	case IsUndefinedObject(err):
		return "schema"
	case hasCode(err, CodeSerializationFailure), hasCode(err, CodeDeadlockDetected):
		return "concurrency"
	default:
		return ""
	}
}

// hasCode prefers the typed driver error and falls back to matching the
// message text for wrapped or stringified errors.
func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if state := SQLState(err); state != "" {
		return state == code
	}
	return containsErrorCode(err, code)
}

func containsErrorCode(err error, code string) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return len(errStr) > 0 && (strings.Contains(errStr, code) || strings.Contains(errStr, "SQLSTATE "+code))
}
