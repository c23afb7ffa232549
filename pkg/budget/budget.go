package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

const (
	DefaultQueryName        = "model_serving_budget"
	DefaultQueryDescription = "Return the amount spent on an endpoint over a given month"
	DefaultAlertName        = "model_serving_budget_alert"
	DefaultOp               = ">"
	DefaultColumn           = "cost"
)

var (
	errEndpointNameRequired = errors.New("an endpoint name is required to create a budget")
	errThresholdNegative    = errors.New("budget threshold cannot be negative")
)

// SQLClient is the part of the workspace API used to manage saved queries
// and alerts.
type SQLClient interface {
	DataSourceForWarehouse(ctx context.Context, warehouseID string) (*workspace.DataSource, error)
	CreateQuery(ctx context.Context, spec workspace.QuerySpec) (*workspace.Query, error)
	DeleteQuery(ctx context.Context, queryID string) error
	CreateAlert(ctx context.Context, spec workspace.AlertSpec) (*workspace.Alert, error)
	DeleteAlert(ctx context.Context, alertID string) error
	AlertURL(alertID string) string
}

// Spec describes a monthly spending alert on one serving endpoint.
type Spec struct {
	EndpointName     string
	Threshold        float64
	QueryName        string
	QueryDescription string
	AlertName        string
	// WarehouseID selects the SQL warehouse the saved query runs on. When
	// empty the workspace default data source is used.
	WarehouseID string
	Op          string
	Column      string
	Rearm       int
}

func (s Spec) withDefaults() Spec {
	if s.QueryName == "" {
		s.QueryName = DefaultQueryName
	}
	if s.QueryDescription == "" {
		s.QueryDescription = DefaultQueryDescription
	}
	if s.AlertName == "" {
		s.AlertName = DefaultAlertName
	}
	if s.Op == "" {
		s.Op = DefaultOp
	}
	if s.Column == "" {
		s.Column = DefaultColumn
	}
	return s
}

func (s Spec) validate() error {
	if s.EndpointName == "" {
		return errEndpointNameRequired
	}
	if s.Threshold < 0 {
		return errThresholdNegative
	}
	if !workspace.ValidAlertOperator(s.Op) {
		return fmt.Errorf("invalid alert operator %q, must be one of: %v", s.Op, workspace.AlertOperators)
	}
	return nil
}

type Result struct {
	QueryID  string `json:"queryID"`
	AlertID  string `json:"alertID"`
	AlertURL string `json:"alertURL"`
}

// Manager creates and removes budget alerts in the workspace.
type Manager struct {
	logger   logrus.FieldLogger
	client   SQLClient
	renderer *billing.Renderer
	tables   billing.Inputs
}

// NewManager returns a Manager whose queries read from the tables set on
// tables. Only the table fields of tables are used.
func NewManager(logger logrus.FieldLogger, client SQLClient, dialect warehouse.Dialect, tables billing.Inputs) *Manager {
	return &Manager{
		logger:   logger.WithField("component", "budgetManager"),
		client:   client,
		renderer: billing.NewRenderer(dialect),
		tables:   tables,
	}
}

func (m *Manager) inputs(endpointName string) billing.Inputs {
	return billing.Inputs{
		EndpointName:    endpointName,
		UsageTable:      m.tables.UsageTable,
		ListPricesTable: m.tables.ListPricesTable,
		EndpointsTable:  m.tables.EndpointsTable,
		SKUPattern:      m.tables.SKUPattern,
		WorkspaceID:     m.tables.WorkspaceID,
	}
}

// Create saves the endpoint's current month cost query and attaches an
// alert to it. If the alert cannot be created the saved query is removed.
func (m *Manager) Create(ctx context.Context, spec Spec) (*Result, error) {
	spec = spec.withDefaults()
	if err := spec.validate(); err != nil {
		return nil, err
	}
	logger := m.logger.WithFields(logrus.Fields{
		"endpoint":  spec.EndpointName,
		"threshold": spec.Threshold,
	})

	queryText, err := m.renderer.Render(billing.ReportEndpointMonthlyCost, m.inputs(spec.EndpointName))
	if err != nil {
		return nil, err
	}

	var dataSourceID string
	if spec.WarehouseID != "" {
		ds, err := m.client.DataSourceForWarehouse(ctx, spec.WarehouseID)
		if err != nil {
			return nil, err
		}
		dataSourceID = ds.ID
	}

	query, err := m.client.CreateQuery(ctx, workspace.QuerySpec{
		Name:         spec.QueryName,
		Description:  spec.QueryDescription,
		Query:        queryText,
		DataSourceID: dataSourceID,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create saved query: %v", err)
	}
	logger.Debugf("created saved query %s", query.ID)

	alert, err := m.client.CreateAlert(ctx, workspace.AlertSpec{
		Name:    spec.AlertName,
		QueryID: query.ID,
		Options: workspace.AlertOptions{
			Column: spec.Column,
			Op:     spec.Op,
			Value:  spec.Threshold,
		},
		Rearm: spec.Rearm,
	})
	if err != nil {
		if delErr := m.client.DeleteQuery(ctx, query.ID); delErr != nil {
			logger.WithError(delErr).Warnf("unable to remove saved query %s", query.ID)
		}
		return nil, fmt.Errorf("unable to create alert: %v", err)
	}

	res := &Result{
		QueryID:  query.ID,
		AlertID:  alert.ID,
		AlertURL: m.client.AlertURL(alert.ID),
	}
	logger.Infof("New alert successfully created! Navigate to %s to take a look or modify it.", res.AlertURL)
	return res, nil
}

// Delete removes a budget alert and, when queryID is set, its saved query.
// The alert is removed first since it references the query.
func (m *Manager) Delete(ctx context.Context, queryID, alertID string) error {
	if alertID == "" && queryID == "" {
		return errors.New("an alert id or query id is required")
	}
	if alertID != "" {
		if err := m.client.DeleteAlert(ctx, alertID); err != nil && !workspace.IsNotFound(err) {
			return fmt.Errorf("unable to delete alert %s: %v", alertID, err)
		}
		m.logger.Infof("deleted alert %s", alertID)
	}
	if queryID != "" {
		if err := m.client.DeleteQuery(ctx, queryID); err != nil && !workspace.IsNotFound(err) {
			return fmt.Errorf("unable to delete saved query %s: %v", queryID, err)
		}
		m.logger.Infof("deleted saved query %s", queryID)
	}
	return nil
}
