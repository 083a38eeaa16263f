// Package nlsql turns a natural-language question into a SQL string
// using a handful of keyword checks. It is a deliberate stub: there is
// no ambiguity resolution, and the produced statement is handed to the
// query core as an opaque string like any other.
package nlsql

import (
	"fmt"
	"strings"
)

// DefaultTable is used when no known table name appears in the question.
const DefaultTable = "users"

// Translator guesses a target table from a known list (typically the
// facade's table listing) and patterns the rest from keywords.
type Translator struct {
	tables []string
}

func NewTranslator(tables []string) *Translator {
	return &Translator{tables: tables}
}

// Translate produces a SQL statement for the question. The output is
// best-effort and always a single read-only SELECT.
func (t *Translator) Translate(question string) string {
	q := strings.ToLower(strings.TrimSpace(question))
	table := t.guessTable(q)

	switch {
	case strings.Contains(q, "how many") || strings.Contains(q, "count"):
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	case strings.Contains(q, "latest") || strings.Contains(q, "most recent"):
		return fmt.Sprintf("SELECT * FROM %s ORDER BY created_at DESC LIMIT 10", table)
	case strings.Contains(q, "all ") || strings.HasPrefix(q, "list"):
		return fmt.Sprintf("SELECT * FROM %s LIMIT 100", table)
	default:
		return fmt.Sprintf("SELECT * FROM %s WHERE description LIKE '%%%s%%' LIMIT 10",
			table, strings.ReplaceAll(q, "'", "''"))
	}
}

// guessTable picks the first known table mentioned in the question.
// Plural/singular is handled only by a trailing-s check.
func (t *Translator) guessTable(q string) string {
	for _, table := range t.tables {
		lower := strings.ToLower(table)
		if strings.Contains(q, lower) || strings.Contains(q, strings.TrimSuffix(lower, "s")) {
			return table
		}
	}
	return DefaultTable
}
