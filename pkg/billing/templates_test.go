package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

const testEndpointsTable = "main.billing_demo.serving_endpoints"

func TestRenderDailyDBUs(t *testing.T) {
	r := NewRenderer(warehouse.DialectDatabricks)

	query, err := r.Render(ReportDailyDBUs, Inputs{})
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n"+
		"  a.usage_date,\n"+
		"  SUM(a.usage_quantity) AS dbus\n"+
		"FROM\n"+
		"  `system`.`billing`.`usage` a\n"+
		"WHERE\n"+
		"  a.sku_name LIKE '%SERVERLESS_REAL_TIME_INFERENCE%'\n"+
		"GROUP BY a.usage_date\n"+
		"ORDER BY a.usage_date DESC\n"+
		"LIMIT 30", query)

	query, err = r.Render(ReportDailyDBUs, Inputs{WorkspaceID: "1234", Limit: 7})
	require.NoError(t, err)
	assert.Contains(t, query, "  a.sku_name LIKE '%SERVERLESS_REAL_TIME_INFERENCE%'\n  AND a.workspace_id = '1234'\nGROUP BY")
	assert.Contains(t, query, "LIMIT 7")
}

func TestRenderReports(t *testing.T) {
	tests := map[string]struct {
		report   string
		dialect  warehouse.Dialect
		inputs   Inputs
		contains []string
		excludes []string

		expectErr    bool
		expectErrMsg string
	}{
		"recent usage selects the latest five rows": {
			report:   ReportRecentUsage,
			dialect:  warehouse.DialectDatabricks,
			contains: []string{"ORDER BY a.usage_start_time DESC\nLIMIT 5", "a.custom_tags,"},
		},
		"daily cost joins the list price in effect": {
			report:  ReportDailyCost,
			dialect: warehouse.DialectDatabricks,
			contains: []string{
				"SUM(a.usage_quantity * b.pricing.`default`) AS dollars",
				"LEFT JOIN `system`.`billing`.`list_prices` b\n    ON a.sku_name = b.sku_name",
				"AND b.pricing.`default` IS NOT NULL",
				"LIMIT 30",
			},
		},
		"daily cost in presto dialect": {
			report:  ReportDailyCost,
			dialect: warehouse.DialectPresto,
			contains: []string{
				`SUM(a.usage_quantity * b.pricing."default") AS dollars`,
				`"system"."billing"."usage" a`,
			},
		},
		"top endpoints joins the synced endpoints table": {
			report:  ReportTopEndpoints,
			dialect: warehouse.DialectDatabricks,
			inputs:  Inputs{EndpointsTable: testEndpointsTable},
			contains: []string{
				"WITH endpoint_usage AS (",
				"a.custom_tags['EndpointId'] AS endpoint_id",
				"AND a.custom_tags['EndpointId'] IS NOT NULL",
				"INNER JOIN `main`.`billing_demo`.`serving_endpoints` e ON u.endpoint_id = e.id",
				"ORDER BY cost DESC\nLIMIT 5",
			},
		},
		"top endpoints without an endpoints table": {
			report:       ReportTopEndpoints,
			dialect:      warehouse.DialectDatabricks,
			expectErr:    true,
			expectErrMsg: errEndpointsTableRequired.Error(),
		},
		"cost by tag defaults to ServingType over thirty days": {
			report:  ReportCostByTag,
			dialect: warehouse.DialectDatabricks,
			contains: []string{
				"a.custom_tags['ServingType'] AS value",
				"AND a.usage_date > DATE_SUB(CURRENT_DATE(), 30)",
				"GROUP BY a.custom_tags['ServingType']\nORDER BY dbus DESC",
			},
			excludes: []string{"LIMIT"},
		},
		"cost by tag with a custom tag in presto dialect": {
			report:  ReportCostByTag,
			dialect: warehouse.DialectPresto,
			inputs:  Inputs{Tag: "Cost Center", LookbackDays: 7, Limit: 10},
			contains: []string{
				"element_at(a.custom_tags, 'Cost Center') AS value",
				"AND a.usage_date > current_date - INTERVAL '7' DAY",
				"ORDER BY dbus DESC\nLIMIT 10",
			},
		},
		"endpoint monthly cost filters on the endpoint name": {
			report:  ReportEndpointMonthlyCost,
			dialect: warehouse.DialectDatabricks,
			inputs:  Inputs{EndpointName: "ya_dbrx", EndpointsTable: testEndpointsTable},
			contains: []string{
				"MONTH(u.usage_date) = MONTH(NOW())",
				"AND YEAR(u.usage_date) = YEAR(NOW())",
				"AND e.name = 'ya_dbrx'\nGROUP BY e.name",
			},
		},
		"endpoint monthly cost escapes the endpoint name": {
			report:   ReportEndpointMonthlyCost,
			dialect:  warehouse.DialectDatabricks,
			inputs:   Inputs{EndpointName: "x' OR '1'='1", EndpointsTable: testEndpointsTable},
			contains: []string{`AND e.name = 'x\' OR \'1\'=\'1'`},
		},
		"endpoint monthly cost without an endpoint name": {
			report:       ReportEndpointMonthlyCost,
			dialect:      warehouse.DialectDatabricks,
			inputs:       Inputs{EndpointsTable: testEndpointsTable},
			expectErr:    true,
			expectErrMsg: errEndpointNameRequired.Error(),
		},
		"unknown report": {
			report:       "monthly-spend",
			dialect:      warehouse.DialectDatabricks,
			expectErr:    true,
			expectErrMsg: `unknown report "monthly-spend", must be one of: [cost-by-tag daily-cost daily-dbus endpoint-monthly-cost recent-usage top-endpoints]`,
		},
	}

	for testName, tt := range tests {
		tt := tt
		t.Run(testName, func(t *testing.T) {
			query, err := NewRenderer(tt.dialect).Render(tt.report, tt.inputs)
			if tt.expectErr {
				assert.EqualError(t, err, tt.expectErrMsg)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, query, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, query, s)
			}
			assert.NotContains(t, query, "{|")
		})
	}
}

func TestRenderQueryErrors(t *testing.T) {
	r := NewRenderer(warehouse.DialectDatabricks)

	_, err := r.RenderQuery("broken", "SELECT foo FROM {|", Inputs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error parsing query: template: broken:1:")

	_, err = r.Render(ReportDailyDBUs, Inputs{UsageTable: "usage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error executing template")
	assert.Contains(t, err.Error(), `table "usage" must be fully qualified as catalog.schema.table`)
}

func TestRenderQueryWithSprig(t *testing.T) {
	r := NewRenderer(warehouse.DialectDatabricks)
	query, err := r.RenderQuery("custom", `SELECT {| .Inputs.Tag | lower | sqlString |} AS tag FROM {| table .Inputs.UsageTable |}`, Inputs{Tag: "ServingType", UsageTable: DefaultUsageTable})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 'servingtype' AS tag FROM `system`.`billing`.`usage`", query)
}

func TestReportsCatalog(t *testing.T) {
	names := ReportNames()
	assert.Equal(t, []string{
		ReportCostByTag,
		ReportDailyCost,
		ReportDailyDBUs,
		ReportEndpointMonthlyCost,
		ReportRecentUsage,
		ReportTopEndpoints,
	}, names)
	for _, r := range Reports() {
		assert.NotEmpty(t, r.Description, r.Name)
		assert.NotEmpty(t, r.Columns, r.Name)
	}
}
