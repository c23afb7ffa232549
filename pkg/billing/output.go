package billing

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

const (
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatTab     = "tab"
	FormatTabular = "tabular"
)

// ParseFormat validates an output format name.
func ParseFormat(format string) (string, error) {
	switch f := strings.ToLower(format); f {
	case FormatJSON, FormatCSV, FormatTab, FormatTabular:
		return f, nil
	}
	return "", fmt.Errorf("format must be one of: csv, json or tabular")
}

// FileExtension is the extension used when a result is written to a file
// or object store.
func FileExtension(format string) string {
	switch format {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	}
	return "tsv"
}

// ContentType is the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	}
	return "text/tab-separated-values"
}

// WriteResults writes result to w in the given format. Tabular output pads
// columns for terminals.
func WriteResults(w io.Writer, format string, result *Result) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatCSV:
		return writeResultsAsCSV(result, w, ',')
	case FormatTab, FormatTabular:
		tabWriter := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		if err := writeResultsAsCSV(result, tabWriter, '\t'); err != nil {
			return err
		}
		return tabWriter.Flush()
	}
	return fmt.Errorf("unknown format %q", format)
}

func writeResultsAsCSV(result *Result, w io.Writer, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := csvWriter.Write(result.Columns); err != nil {
		return err
	}

	for _, row := range result.Rows {
		vals := make([]string, len(result.Columns))
		for i, key := range result.Columns {
			val, ok := row[key]
			if !ok {
				return fmt.Errorf("report results schema doesn't match expected schema, missing column: %q", key)
			}
			s, err := formatValue(val)
			if err != nil {
				return err
			}
			vals[i] = s
		}
		if err := csvWriter.Write(vals); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func formatValue(val interface{}) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case uint, uint8, uint16, uint32, uint64, int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v), nil
	case float32, float64:
		return fmt.Sprintf("%f", v), nil
	case bool:
		return fmt.Sprintf("%t", v), nil
	case time.Time:
		return v.UTC().Format(time.RFC3339), nil
	case *time.Time:
		if v == nil {
			return "", nil
		}
		return v.UTC().Format(time.RFC3339), nil
	case nil:
		return "", nil
	case fmt.Stringer:
		return v.String(), nil
	}
	// maps and structs returned for complex column types
	enc, err := json.Marshal(val)
	if err != nil {
		return "", fmt.Errorf("error marshalling value of type %T: %v", val, err)
	}
	return string(enc), nil
}
