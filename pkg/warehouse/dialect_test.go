package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	for in, expected := range map[string]Dialect{
		"databricks": DialectDatabricks,
		"Presto":     DialectPresto,
		"trino":      DialectPresto,
	} {
		d, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, expected, d, in)
	}
	_, err := ParseDialect("mysql")
	assert.EqualError(t, err, `unsupported SQL dialect "mysql", must be one of: databricks, presto`)
}

func TestDialectSyntax(t *testing.T) {
	tests := map[string]struct {
		dialect Dialect

		quotedIdent  string
		quotedString string
		mapValue     string
		daysAgo      string
	}{
		"databricks": {
			dialect:      DialectDatabricks,
			quotedIdent:  "`cost``center`",
			quotedString: `'it\'s a \\ path'`,
			mapValue:     `custom_tags['Cost Center']`,
			daysAgo:      "DATE_SUB(CURRENT_DATE(), 30)",
		},
		"presto": {
			dialect:      DialectPresto,
			quotedIdent:  "\"cost`center\"",
			quotedString: `'it''s a \ path'`,
			mapValue:     `element_at(custom_tags, 'Cost Center')`,
			daysAgo:      "current_date - INTERVAL '30' DAY",
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.quotedIdent, tt.dialect.QuoteIdentifier("cost`center"))
			assert.Equal(t, tt.quotedString, tt.dialect.QuoteString(`it's a \ path`))
			assert.Equal(t, tt.mapValue, tt.dialect.MapValue("custom_tags", "Cost Center"))
			assert.Equal(t, tt.daysAgo, tt.dialect.DaysAgo(30))
		})
	}
}

func TestDataSourceName(t *testing.T) {
	tests := map[string]struct {
		cfg         Config
		expected    string
		expectedErr string
	}{
		"explicit dsn": {
			cfg:      Config{Dialect: DialectPresto, DSN: "http://user@presto:8080?catalog=hive"},
			expected: "http://user@presto:8080?catalog=hive",
		},
		"presto without dsn": {
			cfg:         Config{Dialect: DialectPresto},
			expectedErr: "the presto dialect requires --sql-dsn",
		},
		"databricks warehouse": {
			cfg: Config{
				Dialect:     DialectDatabricks,
				Host:        "https://dbc-4f2a.cloud.databricks.com/",
				Token:       "dapi123",
				WarehouseID: "8e1f",
			},
			expected: "token:dapi123@dbc-4f2a.cloud.databricks.com:443/sql/1.0/warehouses/8e1f",
		},
		"missing warehouse": {
			cfg:         Config{Dialect: DialectDatabricks, Host: "dbc-4f2a.cloud.databricks.com", Token: "dapi123"},
			expectedErr: errMissingWarehouse.Error(),
		},
		"missing token": {
			cfg:         Config{Dialect: DialectDatabricks, Host: "dbc-4f2a.cloud.databricks.com", WarehouseID: "8e1f"},
			expectedErr: "access token cannot be empty",
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			dsn, err := tt.cfg.dataSourceName()
			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dsn)
		})
	}
}
