package security

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery      = errors.New("empty query")
	ErrMultipleQueries = errors.New("multi-statement queries are not allowed")
	ErrNotSelect       = errors.New("only SELECT queries are allowed")
	ErrInvalidEmail    = errors.New("invalid email address format")
)

// ValidateEmail checks if the provided email is a valid format to prevent header injection.
func ValidateEmail(email string) error {
	// Prevents \r and \n which are used for header injection.
	if strings.ContainsAny(email, "\r\n") {
		return ErrInvalidEmail
	}

	atIdx := strings.Index(email, "@")
	dotIdx := strings.LastIndex(email, ".")
	if atIdx < 1 || dotIdx < atIdx+2 || dotIdx == len(email)-1 {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateQuery gates user-submitted SQL at the transport boundary.
// The core executes statements verbatim, so this is the only line of
// defense the service applies:
//  1. Must be a SELECT statement.
//  2. Must not contain multiple statements (semicolons).
//  3. Must not contain DML/DDL keywords or common leakage vectors.
//  4. Must not touch the system catalogs directly (the introspection
//     endpoints cover that need).
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return ErrEmptyQuery
	}
	qUpper := strings.ToUpper(q)

	if !strings.HasPrefix(qUpper, "SELECT") {
		return ErrNotSelect
	}

	if strings.Contains(q, ";") {
		return ErrMultipleQueries
	}

	forbidden := []string{
		"DELETE", "DROP", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
		"CREATE", "CALL", "DO", "COPY", "VACUUM",
		"PG_SLEEP(", "PG_READ_FILE(", "CURRENT_SETTING(", "VERSION(",
	}
	for _, word := range forbidden {
		if containsWord(qUpper, word) {
			return errors.New("forbidden keyword detected: " + word)
		}
	}

	systemSchemas := []string{
		"INFORMATION_SCHEMA", "PG_CATALOG", "PERFORMANCE_SCHEMA", "MYSQL",
	}
	for _, schema := range systemSchemas {
		if containsWord(qUpper, schema) {
			return errors.New("access to system catalog blocked: " + schema)
		}
	}

	return nil
}

// containsWord checks if word exists in s as a standalone token, so a
// column like "deleted_at" does not trip the "DELETE" rule. Assumes s
// is already uppercase.
func containsWord(s, word string) bool {
	if !strings.Contains(s, word) {
		return false
	}

	// A word ending in '(' carries its own right boundary.
	selfDelimited := strings.HasSuffix(word, "(")

	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i == -1 {
			return false
		}
		start := idx + i
		end := start + len(word)

		isStartValid := start == 0 || isBoundary(s[start-1])
		isEndValid := selfDelimited || end == len(s) || isBoundary(s[end])

		if isStartValid && isEndValid {
			return true
		}

		idx = start + 1
	}
}

func isBoundary(b byte) bool {
	// Standard SQL delimiters
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' ||
		b == '(' || b == ')' || b == ',' || b == '=' ||
		b == '<' || b == '>' || b == '`' || b == '.' ||
		b == '"' || b == '[' || b == ']'
}
