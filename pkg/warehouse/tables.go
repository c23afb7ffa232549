package warehouse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// TimestampFormat is the layout used for timestamp literals.
	TimestampFormat = "2006-01-02 15:04:05.000"
)

var errInvalidTableName = errors.New("table name cannot be empty")

// TableRef names a three level catalog.schema.table.
type TableRef struct {
	Catalog string
	Schema  string
	Table   string
}

// ParseTableRef splits a fully qualified "catalog.schema.table" name.
func ParseTableRef(name string) (TableRef, error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 {
		return TableRef{}, fmt.Errorf("table %q must be fully qualified as catalog.schema.table", name)
	}
	for _, p := range parts {
		if p == "" {
			return TableRef{}, fmt.Errorf("table %q has an empty name part", name)
		}
	}
	return TableRef{Catalog: parts[0], Schema: parts[1], Table: parts[2]}, nil
}

func (t TableRef) String() string {
	return FullyQualifiedTableName(t.Catalog, t.Schema, t.Table)
}

// Quoted renders the reference with every part quoted for the dialect.
func (t TableRef) Quoted(d Dialect) string {
	return FullyQualifiedTableName(d.QuoteIdentifier(t.Catalog), d.QuoteIdentifier(t.Schema), d.QuoteIdentifier(t.Table))
}

func FullyQualifiedTableName(catalog, schema, tableName string) string {
	return fmt.Sprintf("%s.%s.%s", catalog, schema, tableName)
}

func CreateTable(execer Execer, d Dialect, table TableRef, columns []Column, comment string, ignoreExists bool) error {
	if table.Table == "" {
		return errInvalidTableName
	}
	return execer.Exec(GenerateCreateTableSQL(d, table, columns, comment, ignoreExists))
}

func DeleteFrom(execer Execer, d Dialect, table TableRef) error {
	if table.Table == "" {
		return errInvalidTableName
	}
	return execer.Exec(fmt.Sprintf("DELETE FROM %s", table.Quoted(d)))
}

// InsertValues inserts rows in a single statement, taking values in the
// order given by columns. A nil or empty rows slice is a no-op.
func InsertValues(execer Execer, d Dialect, table TableRef, columns []Column, rows []Row) error {
	if table.Table == "" {
		return errInvalidTableName
	}
	if len(rows) == 0 {
		return nil
	}
	query, err := GenerateInsertValuesSQL(d, table, columns, rows)
	if err != nil {
		return err
	}
	return execer.Exec(query)
}

func GenerateCreateTableSQL(d Dialect, table TableRef, columns []Column, comment string, ignoreExists bool) string {
	ifNotExists := ""
	if ignoreExists {
		ifNotExists = "IF NOT EXISTS "
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%s %s", d.QuoteIdentifier(col.Name), col.Type)
	}

	commentStr := ""
	if comment != "" {
		commentStr = "\nCOMMENT " + d.QuoteString(comment)
	}

	return fmt.Sprintf("CREATE TABLE %s%s (\n\t%s\n)%s", ifNotExists, table.Quoted(d), strings.Join(defs, ",\n\t"), commentStr)
}

func GenerateInsertValuesSQL(d Dialect, table TableRef, columns []Column, rows []Row) (string, error) {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = d.QuoteIdentifier(col.Name)
	}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		vals := make([]string, len(columns))
		for j, col := range columns {
			lit, err := Literal(d, row[col.Name])
			if err != nil {
				return "", fmt.Errorf("row %d column %s: %v", i, col.Name, err)
			}
			vals[j] = lit
		}
		tuples[i] = "(" + strings.Join(vals, ", ") + ")"
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES\n%s", table.Quoted(d), strings.Join(names, ", "), strings.Join(tuples, ",\n")), nil
}

// Literal renders a Go value as a SQL literal.
func Literal(d Dialect, val interface{}) (string, error) {
	switch v := val.(type) {
	case nil:
		return "NULL", nil
	case string:
		return d.QuoteString(v), nil
	case []byte:
		return d.QuoteString(string(v)), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		return "TIMESTAMP " + d.QuoteString(Timestamp(v)), nil
	case *time.Time:
		if v == nil {
			return "NULL", nil
		}
		return "TIMESTAMP " + d.QuoteString(Timestamp(*v)), nil
	}
	return "", fmt.Errorf("unsupported literal type %T", val)
}

func Timestamp(date time.Time) string {
	return date.UTC().Format(TimestampFormat)
}
