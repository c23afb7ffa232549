package billing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

const (
	ReportRecentUsage         = "recent-usage"
	ReportDailyDBUs           = "daily-dbus"
	ReportDailyCost           = "daily-cost"
	ReportTopEndpoints        = "top-endpoints"
	ReportCostByTag           = "cost-by-tag"
	ReportEndpointMonthlyCost = "endpoint-monthly-cost"
)

var (
	errEndpointNameRequired   = errors.New("an endpoint name is required for this report")
	errEndpointsTableRequired = errors.New("an endpoints table is required for this report, run `endpoints sync` first")
)

// Report is a built-in query over the billing system tables.
type Report struct {
	Name         string
	Description  string
	Query        string
	Columns      []warehouse.Column
	DefaultLimit int

	RequiresEndpointName   bool
	RequiresEndpointsTable bool
}

// Validate checks that the inputs a report requires are set.
func (r *Report) Validate(in Inputs) error {
	if r.RequiresEndpointName && in.EndpointName == "" {
		return errEndpointNameRequired
	}
	if r.RequiresEndpointsTable && in.EndpointsTable == "" {
		return errEndpointsTableRequired
	}
	return nil
}

// ColumnNames returns the report's output columns in order.
func (r *Report) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

var reports = map[string]*Report{
	ReportRecentUsage: {
		Name:         ReportRecentUsage,
		Description:  "Most recent model serving usage records",
		DefaultLimit: 5,
		Columns: []warehouse.Column{
			{Name: "record_id", Type: "string"},
			{Name: "account_id", Type: "string"},
			{Name: "workspace_id", Type: "string"},
			{Name: "sku_name", Type: "string"},
			{Name: "cloud", Type: "string"},
			{Name: "usage_start_time", Type: "timestamp"},
			{Name: "usage_end_time", Type: "timestamp"},
			{Name: "usage_date", Type: "date"},
			{Name: "custom_tags", Type: "map<string,string>"},
			{Name: "usage_unit", Type: "string"},
			{Name: "usage_quantity", Type: "decimal"},
		},
		Query: `SELECT
  a.record_id,
  a.account_id,
  a.workspace_id,
  a.sku_name,
  a.cloud,
  a.usage_start_time,
  a.usage_end_time,
  a.usage_date,
  a.custom_tags,
  a.usage_unit,
  a.usage_quantity
FROM
  {| table .Inputs.UsageTable |} a
WHERE
  {| template "servingFilter" . |}
ORDER BY a.usage_start_time DESC
LIMIT {| .Inputs.Limit |}`,
	},
	ReportDailyDBUs: {
		Name:         ReportDailyDBUs,
		Description:  "Model serving DBUs per day",
		DefaultLimit: 30,
		Columns: []warehouse.Column{
			{Name: "usage_date", Type: "date"},
			{Name: "dbus", Type: "decimal"},
		},
		Query: `SELECT
  a.usage_date,
  SUM(a.usage_quantity) AS dbus
FROM
  {| table .Inputs.UsageTable |} a
WHERE
  {| template "servingFilter" . |}
GROUP BY a.usage_date
ORDER BY a.usage_date DESC
LIMIT {| .Inputs.Limit |}`,
	},
	ReportDailyCost: {
		Name:         ReportDailyCost,
		Description:  "Model serving list-price dollars per day",
		DefaultLimit: 30,
		Columns: []warehouse.Column{
			{Name: "usage_date", Type: "date"},
			{Name: "dollars", Type: "decimal"},
		},
		Query: `SELECT
  a.usage_date,
  SUM(a.usage_quantity * {| template "price" . |}) AS dollars
FROM
  {| template "pricedUsage" . |}
WHERE
  {| template "servingFilter" . |}
  AND {| template "price" . |} IS NOT NULL
GROUP BY a.usage_date
ORDER BY a.usage_date DESC
LIMIT {| .Inputs.Limit |}`,
	},
	ReportTopEndpoints: {
		Name:                   ReportTopEndpoints,
		Description:            "Most expensive serving endpoints by list-price dollars",
		DefaultLimit:           5,
		RequiresEndpointsTable: true,
		Columns: []warehouse.Column{
			{Name: "name", Type: "string"},
			{Name: "cost", Type: "decimal"},
		},
		Query: `WITH {| template "endpointUsage" . |}
SELECT
  e.name,
  SUM(u.dollars) AS cost
FROM
  endpoint_usage u
  INNER JOIN {| table .Inputs.EndpointsTable |} e ON u.endpoint_id = e.id
GROUP BY e.name
ORDER BY cost DESC
LIMIT {| .Inputs.Limit |}`,
	},
	ReportCostByTag: {
		Name:        ReportCostByTag,
		Description: "Model serving DBUs grouped by a custom tag over the lookback window",
		Columns: []warehouse.Column{
			{Name: "value", Type: "string"},
			{Name: "dbus", Type: "decimal"},
		},
		Query: `SELECT
  {| mapValue "a.custom_tags" .Inputs.Tag |} AS value,
  SUM(a.usage_quantity) AS dbus
FROM
  {| table .Inputs.UsageTable |} a
WHERE
  {| template "servingFilter" . |}
  AND {| mapValue "a.custom_tags" .Inputs.Tag |} IS NOT NULL
  AND a.usage_date > {| daysAgo .Inputs.LookbackDays |}
GROUP BY {| mapValue "a.custom_tags" .Inputs.Tag |}
ORDER BY dbus DESC
{|- if .Inputs.Limit |}
LIMIT {| .Inputs.Limit |}
{|- end |}`,
	},
	ReportEndpointMonthlyCost: {
		Name:                   ReportEndpointMonthlyCost,
		Description:            "List-price dollars spent on one endpoint in the current month",
		RequiresEndpointName:   true,
		RequiresEndpointsTable: true,
		Columns: []warehouse.Column{
			{Name: "name", Type: "string"},
			{Name: "cost", Type: "decimal"},
		},
		Query: `WITH {| template "endpointUsage" . |}
SELECT
  e.name,
  SUM(u.dollars) AS cost
FROM
  endpoint_usage u
  INNER JOIN {| table .Inputs.EndpointsTable |} e ON u.endpoint_id = e.id
WHERE
  MONTH(u.usage_date) = MONTH(NOW())
  AND YEAR(u.usage_date) = YEAR(NOW())
  AND e.name = {| sqlString .Inputs.EndpointName |}
GROUP BY e.name`,
	},
}

// GetReport returns the built-in report called name.
func GetReport(name string) (*Report, error) {
	r, ok := reports[name]
	if !ok {
		return nil, fmt.Errorf("unknown report %q, must be one of: %v", name, ReportNames())
	}
	return r, nil
}

// Reports returns every built-in report sorted by name.
func Reports() []*Report {
	out := make([]*Report, 0, len(reports))
	for _, r := range reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func ReportNames() []string {
	var names []string
	for _, r := range Reports() {
		names = append(names, r.Name)
	}
	return names
}
