package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

type DataSource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WarehouseID string `json:"warehouse_id"`
	Type        string `json:"type,omitempty"`
}

// QuerySpec is the body of a saved query creation.
type QuerySpec struct {
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Query        string `json:"query"`
	DataSourceID string `json:"data_source_id,omitempty"`
}

type Query struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Query        string `json:"query,omitempty"`
	DataSourceID string `json:"data_source_id,omitempty"`
}

// AlertOptions triggers the alert when the value of Column in the first row
// compares to Value according to Op.
type AlertOptions struct {
	Column string      `json:"column"`
	Op     string      `json:"op"`
	Value  interface{} `json:"value"`
}

type AlertSpec struct {
	Name    string       `json:"name"`
	QueryID string       `json:"query_id"`
	Options AlertOptions `json:"options"`
	// Rearm is the number of seconds before a triggered alert may fire again.
	Rearm int `json:"rearm,omitempty"`
}

type Alert struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	State   string       `json:"state,omitempty"`
	Options AlertOptions `json:"options"`
}

// AlertOperators are the comparisons accepted in AlertOptions.Op.
var AlertOperators = []string{">", ">=", "<", "<=", "==", "!="}

func ValidAlertOperator(op string) bool {
	for _, o := range AlertOperators {
		if o == op {
			return true
		}
	}
	return false
}

func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var sources []DataSource
	if _, err := c.do(ctx, http.MethodGet, "/api/2.0/preview/sql/data_sources", nil, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

// DataSourceForWarehouse resolves the data source id that saved queries use
// to refer to a SQL warehouse.
func (c *Client) DataSourceForWarehouse(ctx context.Context, warehouseID string) (*DataSource, error) {
	if warehouseID == "" {
		return nil, errors.New("warehouse id cannot be empty")
	}
	sources, err := c.ListDataSources(ctx)
	if err != nil {
		return nil, err
	}
	for i := range sources {
		if sources[i].WarehouseID == warehouseID {
			return &sources[i], nil
		}
	}
	return nil, fmt.Errorf("no data source found for warehouse %s", warehouseID)
}

func (c *Client) CreateQuery(ctx context.Context, spec QuerySpec) (*Query, error) {
	if spec.Name == "" {
		return nil, errors.New("query name cannot be empty")
	}
	if spec.Query == "" {
		return nil, errors.New("query text cannot be empty")
	}
	query := &Query{}
	if _, err := c.do(ctx, http.MethodPost, "/api/2.0/preview/sql/queries", spec, query); err != nil {
		return nil, err
	}
	return query, nil
}

func (c *Client) DeleteQuery(ctx context.Context, queryID string) error {
	if queryID == "" {
		return errors.New("query id cannot be empty")
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/2.0/preview/sql/queries/"+url.PathEscape(queryID), nil, nil)
	return err
}

func (c *Client) CreateAlert(ctx context.Context, spec AlertSpec) (*Alert, error) {
	if spec.Name == "" {
		return nil, errors.New("alert name cannot be empty")
	}
	if spec.QueryID == "" {
		return nil, errors.New("alert query id cannot be empty")
	}
	if spec.Options.Column == "" {
		return nil, errors.New("alert column cannot be empty")
	}
	if !ValidAlertOperator(spec.Options.Op) {
		return nil, fmt.Errorf("invalid alert operator %q", spec.Options.Op)
	}
	alert := &Alert{}
	if _, err := c.do(ctx, http.MethodPost, "/api/2.0/preview/sql/alerts", spec, alert); err != nil {
		return nil, err
	}
	return alert, nil
}

func (c *Client) DeleteAlert(ctx context.Context, alertID string) error {
	if alertID == "" {
		return errors.New("alert id cannot be empty")
	}
	_, err := c.do(ctx, http.MethodDelete, "/api/2.0/preview/sql/alerts/"+url.PathEscape(alertID), nil, nil)
	return err
}

// AlertURL links to the alert in the workspace UI.
func (c *Client) AlertURL(alertID string) string {
	return c.host + "/sql/alerts/" + alertID
}
