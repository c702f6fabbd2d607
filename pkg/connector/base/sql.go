package base

import (
	"fmt"
	"strings"
)

// LimitQuery wraps a free-form SELECT so the database applies limit natively.
// The wrapper form works for both PostgreSQL and MySQL. limit <= 0 returns
// the query unchanged apart from a trailing semicolon.
func LimitQuery(query string, limit int) string {
	query = strings.TrimRight(strings.TrimSpace(query), ";")
	if limit <= 0 {
		return query
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS limited_query LIMIT %d", query, limit)
}

// SplitObjectName splits "schema.table" into its parts, defaulting the schema
func SplitObjectName(name, defaultSchema string) (schema, object string) {
	if i := strings.Index(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

// Placeholders returns n placeholders produced by ph(i) joined by commas
func Placeholders(n int, ph func(i int) string) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = ph(i)
	}
	return strings.Join(parts, ", ")
}
