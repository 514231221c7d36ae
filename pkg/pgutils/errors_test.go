package pgutils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestSQLState(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"pgx error", &pgconn.PgError{Code: CodeUniqueViolation}, CodeUniqueViolation},
		{"wrapped pgx error", fmt.Errorf("insert: %w", &pgconn.PgError{Code: CodeForeignKeyViolation}), CodeForeignKeyViolation},
		{"pq error", &pq.Error{Code: pq.ErrorCode(CodeNotNullViolation)}, CodeNotNullViolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SQLState(tt.err); got != tt.want {
				t.Errorf("SQLState() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContainsErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{"nil error", nil, CodeUniqueViolation, false},
		{"code in message", errors.New("ERROR: duplicate key value (SQLSTATE 23505)"), CodeUniqueViolation, true},
		{"sqlstate prefix", errors.New("pq: SQLSTATE 23505 duplicate key"), CodeUniqueViolation, true},
		{"no code", errors.New("some other error"), CodeUniqueViolation, false},
		{"empty message", errors.New(""), CodeUniqueViolation, false},
		{"different code", errors.New("SQLSTATE 23503 foreign key violation"), CodeUniqueViolation, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := containsErrorCode(tt.err, tt.code); got != tt.want {
				t.Errorf("containsErrorCode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClass(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: CodeUniqueViolation}, "unique_violation"},
		{"fk", &pq.Error{Code: pq.ErrorCode(CodeForeignKeyViolation)}, "foreign_key_violation"},
		{"not null from text", errors.New("ERROR (SQLSTATE 23502)"), "not_null_violation"},
		{"missing table", &pgconn.PgError{Code: CodeUndefinedTable}, "schema"},
		{"missing function", &pgconn.PgError{Code: CodeUndefinedFunction}, "schema"},
		{"deadlock", &pgconn.PgError{Code: CodeDeadlockDetected}, "concurrency"},
		{"typed code wins over text", &pgconn.PgError{Code: "22001", Message: "mentions 23505"}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Class(tt.err); got != tt.want {
				t.Errorf("Class() = %q, want %q", got, tt.want)
			}
		})
	}
}
