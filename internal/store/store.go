package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Executor is the statement surface of a RecordStore. InTx hands one bound to
// the open transaction to its callback.
type Executor interface {
	Insert(ctx context.Context, table string, rec Record) (int64, error)
	Update(ctx context.Context, table string, rec Record, where string, whereArgs ...any) (int64, error)
	Delete(ctx context.Context, table string, where string, whereArgs ...any) (int64, error)
	FetchOne(ctx context.Context, query string, args ...any) (Record, error)
	FetchAll(ctx context.Context, query string, args ...any) ([]Record, error)
}

// RecordStore turns Records into parameterized statements. Values are always
// bound as arguments; only code-authored table names, column names and WHERE
// clauses ever reach the SQL text.
type RecordStore struct {
	db      *sql.DB
	q       querier
	dialect Dialect
}

// New constructs a RecordStore over an open connection pool.
func New(db *sql.DB, dialect Dialect) *RecordStore {
	return &RecordStore{db: db, q: db, dialect: dialect}
}

// Insert writes rec into table and returns the backend generated id when the
// driver reports one. Callers that assign their own ids can ignore it.
func (s *RecordStore) Insert(ctx context.Context, table string, rec Record) (int64, error) {
	if err := checkRecord(table, rec); err != nil {
		return 0, wrap("insert", table, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(rec)), ", ")
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(rec.Names(), ", "),
		placeholders,
	)

	result, err := s.q.ExecContext(ctx, s.dialect.Rebind(query), rec.Values()...)
	if err != nil {
		return 0, wrap("insert", table, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		// Postgres drivers do not report insert ids.
		return 0, nil
	}
	return id, nil
}

// Update sets the columns of rec on every row of table matching where and
// returns the number of rows affected. Record values are bound before
// whereArgs.
func (s *RecordStore) Update(ctx context.Context, table string, rec Record, where string, whereArgs ...any) (int64, error) {
	if err := checkRecord(table, rec); err != nil {
		return 0, wrap("update", table, err)
	}
	if strings.TrimSpace(where) == "" {
		return 0, wrap("update", table, errors.New("where clause is required"))
	}

	sets := make([]string, len(rec))
	for i, name := range rec.Names() {
		sets[i] = name + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(sets, ", "), where)

	args := append(rec.Values(), whereArgs...)
	result, err := s.q.ExecContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return 0, wrap("update", table, err)
	}
	return rowsAffected("update", table, result)
}

// Delete removes every row of table matching where and returns the number of
// rows removed.
func (s *RecordStore) Delete(ctx context.Context, table string, where string, whereArgs ...any) (int64, error) {
	if !identifierPattern.MatchString(table) {
		return 0, wrap("delete", table, ErrInvalidIdentifier)
	}
	if strings.TrimSpace(where) == "" {
		return 0, wrap("delete", table, errors.New("where clause is required"))
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, where)
	result, err := s.q.ExecContext(ctx, s.dialect.Rebind(query), whereArgs...)
	if err != nil {
		return 0, wrap("delete", table, err)
	}
	return rowsAffected("delete", table, result)
}

// FetchOne runs query and returns its first row, or nil when there is none.
func (s *RecordStore) FetchOne(ctx context.Context, query string, args ...any) (Record, error) {
	records, err := s.fetch(ctx, query, 1, args)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FetchAll runs query and returns every row it produces. Row bounds belong in
// the query itself (LIMIT).
func (s *RecordStore) FetchAll(ctx context.Context, query string, args ...any) ([]Record, error) {
	return s.fetch(ctx, query, 0, args)
}

// InTx runs fn against a store bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Calling InTx on a
// transaction-bound store reuses the current transaction; the Executor passed
// to fn is always a *RecordStore.
func (s *RecordStore) InTx(ctx context.Context, fn func(tx Executor) error) (err error) {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("begin", "", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&RecordStore{q: tx, dialect: s.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, wrap("rollback", "", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit", "", err)
	}
	return nil
}

// Ping verifies the backend is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return wrap("ping", "", s.db.PingContext(ctx))
}

func (s *RecordStore) fetch(ctx context.Context, query string, max int, args []any) ([]Record, error) {
	rows, err := s.q.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, wrap("query", "", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, wrap("query", "", err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, wrap("scan", "", err)
		}

		rec := NewRecord(len(columns))
		for i, name := range columns {
			rec = append(rec, Column{Name: name, Value: normalize(values[i])})
		}
		records = append(records, rec)

		if max > 0 && len(records) == max {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("query", "", err)
	}
	return records, nil
}

// normalize copies driver owned byte slices into strings; text columns come
// back as []byte from some drivers.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func rowsAffected(op, table string, result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrap(op, table, err)
	}
	return n, nil
}

func checkRecord(table string, rec Record) error {
	if !identifierPattern.MatchString(table) {
		return fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	if len(rec) == 0 {
		return errors.New("record has no columns")
	}
	for _, name := range rec.Names() {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: column %q", ErrInvalidIdentifier, name)
		}
	}
	return nil
}
