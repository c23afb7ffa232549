package billing

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	mockwarehouse "github.com/lakehouse-reporting/systables/pkg/warehouse/mock"
)

var testLogger = logrus.New()

func TestReporterRun(t *testing.T) {
	expectedSQL, err := NewRenderer(warehouse.DialectDatabricks).Render(ReportDailyDBUs, Inputs{})
	require.NoError(t, err)

	tests := map[string]struct {
		report string
		inputs Inputs

		prepare func(q *mockwarehouse.MockExecQueryer)

		expectedRows int
		expectedErr  string
	}{
		"rows are returned with the report's columns": {
			report: ReportDailyDBUs,
			prepare: func(q *mockwarehouse.MockExecQueryer) {
				q.EXPECT().Query(expectedSQL).Return([]warehouse.Row{
					{"usage_date": "2024-05-01", "dbus": 12.5},
					{"usage_date": "2024-04-30", "dbus": 3.0},
				}, nil)
			},
			expectedRows: 2,
		},
		"query failures are wrapped": {
			report: ReportDailyDBUs,
			prepare: func(q *mockwarehouse.MockExecQueryer) {
				q.EXPECT().Query(expectedSQL).Return(nil, errors.New("TABLE_OR_VIEW_NOT_FOUND"))
			},
			expectedErr: "failed to run report daily-dbus: TABLE_OR_VIEW_NOT_FOUND",
		},
		"invalid inputs never reach the warehouse": {
			report:      ReportEndpointMonthlyCost,
			inputs:      Inputs{EndpointsTable: testEndpointsTable},
			expectedErr: errEndpointNameRequired.Error(),
		},
	}

	for testName, tt := range tests {
		tt := tt
		t.Run(testName, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			queryer := mockwarehouse.NewMockExecQueryer(ctrl)
			if tt.prepare != nil {
				tt.prepare(queryer)
			}

			r := NewReporter(testLogger, queryer, warehouse.DialectDatabricks)
			r.now = func() time.Time { return time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC) }

			result, err := r.Run(tt.report, tt.inputs)
			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.report, result.Report)
			assert.Equal(t, []string{"usage_date", "dbus"}, result.Columns)
			assert.Len(t, result.Rows, tt.expectedRows)
			assert.Equal(t, expectedSQL, result.Query)
			assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), result.RunAt)
		})
	}
}

func TestWriteResults(t *testing.T) {
	result := &Result{
		Report:  ReportTopEndpoints,
		Columns: []string{"name", "cost"},
		Rows: []warehouse.Row{
			{"name": "ya_dbrx", "cost": 1234.5},
			{"name": "cpu,small", "cost": nil},
		},
		RunAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
	}

	tests := map[string]struct {
		format   string
		result   *Result
		expected string
		errMsg   string
	}{
		"csv": {
			format:   FormatCSV,
			result:   result,
			expected: "name,cost\nya_dbrx,1234.500000\n\"cpu,small\",\n",
		},
		"tabular": {
			format:   FormatTabular,
			result:   result,
			expected: "name       cost\nya_dbrx    1234.500000\ncpu,small  \n",
		},
		"json": {
			format: FormatJSON,
			result: result,
			expected: `{
  "report": "top-endpoints",
  "columns": [
    "name",
    "cost"
  ],
  "results": [
    {
      "cost": 1234.5,
      "name": "ya_dbrx"
    },
    {
      "cost": null,
      "name": "cpu,small"
    }
  ],
  "runAt": "2024-05-02T00:00:00Z"
}
`,
		},
		"schema mismatch": {
			format: FormatCSV,
			result: &Result{Columns: []string{"name", "cost"}, Rows: []warehouse.Row{{"name": "x"}}},
			errMsg: `report results schema doesn't match expected schema, missing column: "cost"`,
		},
		"complex values are rendered as json": {
			format:   FormatCSV,
			result:   &Result{Columns: []string{"custom_tags"}, Rows: []warehouse.Row{{"custom_tags": map[string]string{"EndpointId": "abc"}}}},
			expected: "custom_tags\n\"{\"\"EndpointId\"\":\"\"abc\"\"}\"\n",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			err := WriteResults(&buf, tt.format, tt.result)
			if tt.errMsg != "" {
				assert.EqualError(t, err, tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, "csv", FileExtension(f))
	assert.Equal(t, "tsv", FileExtension(FormatTab))

	_, err = ParseFormat("xml")
	assert.EqualError(t, err, "format must be one of: csv, json or tabular")
}
