package warehouse

import (
	"fmt"
	"strings"
)

// Dialect covers the handful of syntax differences between Databricks SQL
// and Presto/Trino that the billing queries and table helpers touch.
type Dialect string

const (
	DialectDatabricks Dialect = "databricks"
	DialectPresto     Dialect = "presto"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case DialectDatabricks, DialectPresto:
		return d, nil
	case "trino":
		return DialectPresto, nil
	}
	return "", fmt.Errorf("unsupported SQL dialect %q, must be one of: databricks, presto", s)
}

// QuoteIdentifier quotes a single identifier part.
func (d Dialect) QuoteIdentifier(name string) string {
	if d == DialectPresto {
		return `"` + strings.Replace(name, `"`, `""`, -1) + `"`
	}
	return "`" + strings.Replace(name, "`", "``", -1) + "`"
}

// MapValue returns the expression selecting key from a map column.
func (d Dialect) MapValue(column, key string) string {
	if d == DialectPresto {
		return fmt.Sprintf("element_at(%s, %s)", column, d.QuoteString(key))
	}
	return fmt.Sprintf("%s[%s]", column, d.QuoteString(key))
}

// StructField returns the expression selecting field from a struct column.
func (d Dialect) StructField(column, field string) string {
	return column + "." + d.QuoteIdentifier(field)
}

// DaysAgo returns a date expression n days before today.
func (d Dialect) DaysAgo(n int) string {
	if d == DialectPresto {
		return fmt.Sprintf("current_date - INTERVAL '%d' DAY", n)
	}
	return fmt.Sprintf("DATE_SUB(CURRENT_DATE(), %d)", n)
}

// QuoteString renders s as a single-quoted SQL string literal. Databricks
// SQL treats backslash as an escape character and concatenates adjacent
// literals, so quotes are backslash-escaped there rather than doubled.
func (d Dialect) QuoteString(s string) string {
	if d == DialectPresto {
		return "'" + strings.Replace(s, "'", "''", -1) + "'"
	}
	s = strings.Replace(s, `\`, `\\`, -1)
	return "'" + strings.Replace(s, "'", `\'`, -1) + "'"
}
