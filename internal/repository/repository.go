package repository

import (
	"strings"

	"github.com/Masterminds/squirrel"
)

// psql builds statements with $n placeholders, which both SQLite and
// PostgreSQL accept.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// isUniqueViolation works for both SQLite and PostgreSQL.
func isUniqueViolation(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "duplicate key value")
}

// Page limits list queries. A zero Limit means no limit.
type Page struct {
	Limit  uint64
	Offset uint64
}

func (p Page) apply(b squirrel.SelectBuilder) squirrel.SelectBuilder {
	if p.Limit > 0 {
		b = b.Limit(p.Limit)
	}
	if p.Offset > 0 {
		b = b.Offset(p.Offset)
	}
	return b
}
