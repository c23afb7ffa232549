package budget

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

var (
	endpointLabels = []string{"endpoint"}

	endpointMonthlyCostGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "systables",
			Name:      "endpoint_monthly_cost_dollars",
			Help:      "List-price dollars spent on a serving endpoint in the current month.",
		},
		endpointLabels,
	)

	budgetExceededGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "systables",
			Name:      "budget_exceeded",
			Help:      "1 if the endpoint's monthly cost crossed its budget threshold at the last check, 0 otherwise.",
		},
		endpointLabels,
	)
)

func init() {
	prometheus.MustRegister(endpointMonthlyCostGauge)
	prometheus.MustRegister(budgetExceededGauge)
}

// Target is an endpoint and the threshold its monthly cost is compared to.
type Target struct {
	EndpointName string  `json:"endpoint"`
	Threshold    float64 `json:"threshold"`
	// Op defaults to ">".
	Op string `json:"op,omitempty"`
}

type Evaluation struct {
	EndpointName string  `json:"endpoint"`
	Cost         float64 `json:"cost"`
	Threshold    float64 `json:"threshold"`
	Op           string  `json:"op"`
	Exceeded     bool    `json:"exceeded"`
}

// Checker evaluates budget targets locally by running the endpoint's
// current month cost report, the same query a budget alert saves.
type Checker struct {
	logger   logrus.FieldLogger
	reporter billing.Reporter
	tables   billing.Inputs
}

func NewChecker(logger logrus.FieldLogger, reporter billing.Reporter, tables billing.Inputs) *Checker {
	return &Checker{
		logger:   logger.WithField("component", "budgetChecker"),
		reporter: reporter,
		tables:   tables,
	}
}

func (c *Checker) Check(target Target) (*Evaluation, error) {
	if target.EndpointName == "" {
		return nil, errEndpointNameRequired
	}
	op := target.Op
	if op == "" {
		op = DefaultOp
	}
	if !workspace.ValidAlertOperator(op) {
		return nil, fmt.Errorf("invalid alert operator %q, must be one of: %v", op, workspace.AlertOperators)
	}

	inputs := c.tables
	inputs.EndpointName = target.EndpointName
	result, err := c.reporter.Run(billing.ReportEndpointMonthlyCost, inputs)
	if err != nil {
		return nil, err
	}

	// no rows means no usage this month
	var cost float64
	if len(result.Rows) != 0 {
		cost, err = toFloat(result.Rows[0][DefaultColumn])
		if err != nil {
			return nil, fmt.Errorf("invalid %s value for endpoint %s: %v", DefaultColumn, target.EndpointName, err)
		}
	}

	exceeded, err := Compare(cost, op, target.Threshold)
	if err != nil {
		return nil, err
	}

	labels := prometheus.Labels{"endpoint": target.EndpointName}
	endpointMonthlyCostGauge.With(labels).Set(cost)
	if exceeded {
		budgetExceededGauge.With(labels).Set(1)
	} else {
		budgetExceededGauge.With(labels).Set(0)
	}

	logger := c.logger.WithFields(logrus.Fields{
		"endpoint":  target.EndpointName,
		"cost":      cost,
		"threshold": target.Threshold,
	})
	if exceeded {
		logger.Warnf("endpoint %s has spent $%.2f this month, budget is %s $%.2f", target.EndpointName, cost, op, target.Threshold)
	} else {
		logger.Debugf("endpoint %s is within budget", target.EndpointName)
	}

	return &Evaluation{
		EndpointName: target.EndpointName,
		Cost:         cost,
		Threshold:    target.Threshold,
		Op:           op,
		Exceeded:     exceeded,
	}, nil
}

// Compare applies an alert operator as value <op> threshold.
func Compare(value float64, op string, threshold float64) (bool, error) {
	switch op {
	case ">":
		return value > threshold, nil
	case ">=":
		return value >= threshold, nil
	case "<":
		return value < threshold, nil
	case "<=":
		return value <= threshold, nil
	case "==":
		return value == threshold, nil
	case "!=":
		return value != threshold, nil
	}
	return false, fmt.Errorf("invalid alert operator %q", op)
}

func toFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case fmt.Stringer:
		return strconv.ParseFloat(v.String(), 64)
	}
	return 0, fmt.Errorf("unsupported type %T", val)
}
