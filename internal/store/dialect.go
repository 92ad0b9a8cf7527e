package store

import (
	"strconv"
	"strings"
)

// Dialect selects the positional placeholder style of the backend.
type Dialect int

const (
	// DialectQuestion binds with "?" (SQLite, MySQL).
	DialectQuestion Dialect = iota
	// DialectDollar binds with "$1", "$2", ... (Postgres).
	DialectDollar
)

// DialectForDriver maps a database/sql driver name to its placeholder dialect.
func DialectForDriver(driver string) Dialect {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "pgx", "pgx/v5":
		return DialectDollar
	default:
		return DialectQuestion
	}
}

// Rebind rewrites "?" placeholders for the dialect. Question marks inside
// single-quoted literals, double-quoted identifiers and comments are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectDollar || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'' || ch == '"':
			end := closingQuote(query, i, ch)
			b.WriteString(query[i:end])
			i = end - 1
		case ch == '-' && i+1 < len(query) && query[i+1] == '-':
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				b.WriteString(query[i:])
				return b.String()
			}
			b.WriteString(query[i : i+end])
			i += end - 1
		case ch == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// closingQuote returns the index just past the literal opened at start,
// honouring doubled quotes as escapes.
func closingQuote(query string, start int, quote byte) int {
	for i := start + 1; i < len(query); i++ {
		if query[i] != quote {
			continue
		}
		if i+1 < len(query) && query[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(query)
}
