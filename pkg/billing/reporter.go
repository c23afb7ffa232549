package billing

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

const prometheusMetricNamespace = "systables"

var (
	reportPrometheusMetricLabels = []string{"report"}

	runReportTotalCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "report_runs_total",
			Help:      "Number of billing report runs.",
		},
		reportPrometheusMetricLabels,
	)

	runReportFailedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "report_runs_failed_total",
			Help:      "Number of billing report runs that failed.",
		},
		reportPrometheusMetricLabels,
	)

	runReportDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: prometheusMetricNamespace,
			Name:      "report_run_duration_seconds",
			Help:      "Duration to run a billing report.",
			Buckets:   []float64{1.0, 5.0, 15.0, 60.0, 300.0},
		},
		reportPrometheusMetricLabels,
	)
)

func init() {
	prometheus.MustRegister(runReportTotalCounter)
	prometheus.MustRegister(runReportFailedCounter)
	prometheus.MustRegister(runReportDurationHistogram)
}

// Result holds the rows of one report run.
type Result struct {
	Report  string            `json:"report"`
	Query   string            `json:"-"`
	Columns []string          `json:"columns"`
	Rows    []warehouse.Row   `json:"results"`
	RunAt   time.Time         `json:"runAt"`
	Inputs  map[string]string `json:"inputs,omitempty"`
}

type Reporter interface {
	Run(name string, inputs Inputs) (*Result, error)
}

type reporter struct {
	logger   log.FieldLogger
	queryer  warehouse.Queryer
	renderer *Renderer
	now      func() time.Time
}

func NewReporter(logger log.FieldLogger, queryer warehouse.Queryer, dialect warehouse.Dialect) *reporter {
	return &reporter{
		logger:   logger.WithField("component", "reporter"),
		queryer:  queryer,
		renderer: NewRenderer(dialect),
		now:      time.Now,
	}
}

func (r *reporter) Run(name string, inputs Inputs) (*Result, error) {
	logger := r.logger.WithField("report", name)

	report, err := GetReport(name)
	if err != nil {
		return nil, err
	}
	query, err := r.renderer.Render(name, inputs)
	if err != nil {
		return nil, err
	}

	metricLabels := prometheus.Labels{"report": report.Name}
	runReportTotalCounter.With(metricLabels).Inc()
	start := r.now()

	logger.Debugf("running report")
	rows, err := r.queryer.Query(query)
	runReportDurationHistogram.With(metricLabels).Observe(float64(r.now().Sub(start)) / float64(time.Second))
	if err != nil {
		runReportFailedCounter.With(metricLabels).Inc()
		logger.WithError(err).Errorf("report query failed")
		return nil, fmt.Errorf("failed to run report %s: %v", report.Name, err)
	}
	logger.Debugf("report returned %d rows", len(rows))

	return &Result{
		Report:  report.Name,
		Query:   query,
		Columns: report.ColumnNames(),
		Rows:    rows,
		RunAt:   start.UTC(),
		Inputs:  inputs.summary(),
	}, nil
}

// summary lists the non-empty caller supplied inputs for result metadata.
func (in Inputs) summary() map[string]string {
	m := make(map[string]string)
	add := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	add("endpoint", in.EndpointName)
	add("tag", in.Tag)
	add("workspaceID", in.WorkspaceID)
	if in.Limit > 0 {
		m["limit"] = fmt.Sprintf("%d", in.Limit)
	}
	if in.LookbackDays > 0 {
		m["lookbackDays"] = fmt.Sprintf("%d", in.LookbackDays)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
