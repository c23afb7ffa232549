package billing

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

const (
	DefaultUsageTable      = "system.billing.usage"
	DefaultListPricesTable = "system.billing.list_prices"
	// DefaultSKUPattern matches both the serving SKU and the launch SKU
	// billed when an endpoint scales up from zero.
	DefaultSKUPattern   = "%SERVERLESS_REAL_TIME_INFERENCE%"
	DefaultTag          = "ServingType"
	DefaultLookbackDays = 30
)

// Inputs parameterise the report queries. Zero values are replaced by the
// defaults above or, for Limit, by the report's own default.
type Inputs struct {
	EndpointName string
	Tag          string
	WorkspaceID  string
	Limit        int
	LookbackDays int

	UsageTable      string
	ListPricesTable string
	EndpointsTable  string
	SKUPattern      string
}

type TemplateContext struct {
	Inputs Inputs
}

// withDefaults returns a copy of in with empty fields filled in.
func (in Inputs) withDefaults(report *Report) Inputs {
	if in.UsageTable == "" {
		in.UsageTable = DefaultUsageTable
	}
	if in.ListPricesTable == "" {
		in.ListPricesTable = DefaultListPricesTable
	}
	if in.SKUPattern == "" {
		in.SKUPattern = DefaultSKUPattern
	}
	if in.Tag == "" {
		in.Tag = DefaultTag
	}
	if in.LookbackDays <= 0 {
		in.LookbackDays = DefaultLookbackDays
	}
	if in.Limit <= 0 && report != nil {
		in.Limit = report.DefaultLimit
	}
	return in
}

// Shared fragments. pricedUsage joins every usage row to the list price
// that was in effect when the usage ended.
const sharedTemplates = `
{|- define "price" -|}
{| structField "b.pricing" "default" |}
{|- end -|}

{|- define "pricedUsage" -|}
{| table .Inputs.UsageTable |} a
  LEFT JOIN {| table .Inputs.ListPricesTable |} b
    ON a.sku_name = b.sku_name
    AND a.usage_unit = b.usage_unit
    AND a.usage_end_time >= b.price_start_time
    AND (b.price_end_time IS NULL OR a.usage_end_time < b.price_end_time)
{|- end -|}

{|- define "servingFilter" -|}
a.sku_name LIKE {| sqlString .Inputs.SKUPattern |}
{|- if .Inputs.WorkspaceID |}
  AND a.workspace_id = {| sqlString .Inputs.WorkspaceID |}
{|- end -|}
{|- end -|}

{|- define "endpointUsage" -|}
endpoint_usage AS (
  SELECT
    {| mapValue "a.custom_tags" "EndpointId" |} AS endpoint_id,
    a.usage_quantity,
    a.usage_quantity * {| template "price" . |} AS dollars,
    a.usage_date,
    a.account_id,
    a.workspace_id
  FROM
    {| template "pricedUsage" . |}
  WHERE
    {| template "servingFilter" . |}
    AND {| mapValue "a.custom_tags" "EndpointId" |} IS NOT NULL
)
{|- end -|}
`

// Renderer renders report templates for one SQL dialect.
type Renderer struct {
	dialect warehouse.Dialect
}

func NewRenderer(dialect warehouse.Dialect) *Renderer {
	return &Renderer{dialect: dialect}
}

func (r *Renderer) funcMap() template.FuncMap {
	d := r.dialect
	return template.FuncMap{
		"table": func(name string) (string, error) {
			ref, err := warehouse.ParseTableRef(name)
			if err != nil {
				return "", err
			}
			return ref.Quoted(d), nil
		},
		"sqlString":   d.QuoteString,
		"ident":       d.QuoteIdentifier,
		"mapValue":    d.MapValue,
		"structField": d.StructField,
		"daysAgo":     d.DaysAgo,
	}
}

func (r *Renderer) newQueryTemplate(name, queryTemplate string) (*template.Template, error) {
	tmpl := template.New(name).Delims("{|", "|}").Funcs(sprig.TxtFuncMap()).Funcs(r.funcMap())
	if _, err := tmpl.Parse(sharedTemplates); err != nil {
		return nil, fmt.Errorf("error parsing shared templates: %v", err)
	}
	if _, err := tmpl.Parse(queryTemplate); err != nil {
		return nil, fmt.Errorf("error parsing query: %v", err)
	}
	return tmpl, nil
}

// RenderQuery renders an arbitrary query template against inputs.
func (r *Renderer) RenderQuery(name, query string, inputs Inputs) (string, error) {
	tmpl, err := r.newQueryTemplate(name, query)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, &TemplateContext{Inputs: inputs}); err != nil {
		return "", fmt.Errorf("error executing template: %v", err)
	}
	return buf.String(), nil
}

// Render renders the named built-in report.
func (r *Renderer) Render(name string, inputs Inputs) (string, error) {
	report, err := GetReport(name)
	if err != nil {
		return "", err
	}
	inputs = inputs.withDefaults(report)
	if err := report.Validate(inputs); err != nil {
		return "", err
	}
	return r.RenderQuery(report.Name, report.Query, inputs)
}
