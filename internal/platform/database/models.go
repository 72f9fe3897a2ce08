package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// nullString stores empty optional text as NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// queryBuilder accumulates WHERE clauses with positional placeholders
type queryBuilder struct {
	conditions []string
	args       []any
}

// add appends a condition; the %s in cond becomes the argument's placeholder
func (b *queryBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conditions = append(b.conditions, fmt.Sprintf(cond, b.placeholder()))
}

// addStatic appends a condition without an argument
func (b *queryBuilder) addStatic(cond string) {
	b.conditions = append(b.conditions, cond)
}

func (b *queryBuilder) placeholder() string {
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

