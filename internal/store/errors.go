package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ErrInvalidIdentifier is returned when a table or column name is not a plain
// SQL identifier.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Error wraps a backend failure with the store operation that produced it.
type Error struct {
	Op    string
	Table string
	Err   error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Table: table, Err: err}
}

// IsUniqueViolation reports whether err was caused by a unique or primary key
// constraint.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation ||
		sqliteConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE") ||
		sqliteConstraint(err, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, "PRIMARY KEY")
}

// IsForeignKeyViolation reports whether err was caused by a foreign key
// constraint.
func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation ||
		sqliteConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY")
}

// sqliteConstraint matches the extended result code, falling back to the
// message when only the primary SQLITE_CONSTRAINT code is reported.
func sqliteConstraint(err error, extended int, marker string) bool {
	var liteErr *sqlite.Error
	if !errors.As(err, &liteErr) {
		return false
	}
	code := liteErr.Code()
	if code == extended {
		return true
	}
	return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), marker)
}

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
