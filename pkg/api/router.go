package api

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/endpoints"
	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

const (
	APIV1ReportsEndpoint   = "/api/v1/reports"
	APIV1SchemasEndpoint   = "/api/v1/schemas"
	APIV1EndpointsEndpoint = "/api/v1/endpoints"
)

var (
	httpRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "systables",
			Name:      "http_requests_total",
			Help:      "Number of HTTP API requests by status code and method.",
		},
		[]string{"code", "method"},
	)

	httpRequestDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "systables",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP API requests.",
			Buckets:   []float64{0.1, 1.0, 5.0, 15.0, 60.0},
		},
		[]string{"code", "method"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsCounter)
	prometheus.MustRegister(httpRequestDurationHistogram)
}

// SchemaLister is the part of the workspace client used to report system
// schema status.
type SchemaLister interface {
	ListSystemSchemas(ctx context.Context, metastoreID string) (*workspace.SystemSchemaList, error)
}

// Pinger checks the SQL warehouse is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the collaborators the API handlers call.
type Dependencies struct {
	Reporter       billing.Reporter
	SchemaLister   SchemaLister
	EndpointLister endpoints.Lister
	Pinger         Pinger

	MetastoreID string
	// Tables holds the table names and filters applied to every report.
	Tables billing.Inputs
}

type server struct {
	logger log.FieldLogger
	rand   *rand.Rand
	deps   Dependencies
}

type requestLogger struct {
	log.FieldLogger
}

func (l *requestLogger) Print(v ...interface{}) {
	l.FieldLogger.Info(v...)
}

func instrument(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(httpRequestDurationHistogram,
		promhttp.InstrumentHandlerCounter(httpRequestsCounter, next))
}

func NewRouter(logger log.FieldLogger, rand *rand.Rand, deps Dependencies) chi.Router {
	router := chi.NewRouter()
	logger = logger.WithField("component", "api")
	requestLogger := middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: &requestLogger{logger}})
	router.Use(requestLogger)
	router.Use(instrument)

	srv := &server{
		logger: logger,
		rand:   rand,
		deps:   deps,
	}

	router.Get(APIV1ReportsEndpoint, srv.listReportsHandler)
	router.Get(APIV1ReportsEndpoint+"/{name}", srv.getReportHandler)
	router.Get(APIV1SchemasEndpoint, srv.listSchemasHandler)
	router.Get(APIV1EndpointsEndpoint, srv.listEndpointsHandler)
	router.HandleFunc("/healthy", srv.healthinessHandler)

	return router
}

type reportInfo struct {
	Name                   string             `json:"name"`
	Description            string             `json:"description"`
	Columns                []warehouse.Column `json:"columns"`
	RequiresEndpointName   bool               `json:"requiresEndpointName,omitempty"`
	RequiresEndpointsTable bool               `json:"requiresEndpointsTable,omitempty"`
}

func (srv *server) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r, srv.rand)
	var infos []reportInfo
	for _, report := range billing.Reports() {
		infos = append(infos, reportInfo{
			Name:                   report.Name,
			Description:            report.Description,
			Columns:                report.Columns,
			RequiresEndpointName:   report.RequiresEndpointName,
			RequiresEndpointsTable: report.RequiresEndpointsTable,
		})
	}
	writeResponseAsJSON(logger, w, http.StatusOK, infos)
}

// reportInputs builds report inputs from URL query params on top of the
// configured tables.
func (srv *server) reportInputs(r *http.Request) (billing.Inputs, error) {
	inputs := srv.deps.Tables
	q := r.URL.Query()
	if v := q.Get("endpoint"); v != "" {
		inputs.EndpointName = v
	}
	if v := q.Get("tag"); v != "" {
		inputs.Tag = v
	}
	if v := q.Get("workspace"); v != "" {
		inputs.WorkspaceID = v
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return inputs, fmt.Errorf("limit must be a positive integer, got %q", v)
		}
		inputs.Limit = limit
	}
	if v := q.Get("lookback"); v != "" {
		days, err := billing.ParseLookbackDays(v)
		if err != nil {
			return inputs, err
		}
		inputs.LookbackDays = days
	}
	return inputs, nil
}

func (srv *server) getReportHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r, srv.rand)
	name := chi.URLParam(r, "name")

	format := billing.FormatJSON
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if format, err = billing.ParseFormat(v); err != nil {
			writeErrorResponse(logger, w, r, http.StatusBadRequest, "%v", err)
			return
		}
	}

	report, err := billing.GetReport(name)
	if err != nil {
		writeErrorResponse(logger, w, r, http.StatusNotFound, "%v", err)
		return
	}
	inputs, err := srv.reportInputs(r)
	if err != nil {
		writeErrorResponse(logger, w, r, http.StatusBadRequest, "%v", err)
		return
	}
	if err := report.Validate(inputs); err != nil {
		writeErrorResponse(logger, w, r, http.StatusBadRequest, "%v", err)
		return
	}

	result, err := srv.deps.Reporter.Run(report.Name, inputs)
	if err != nil {
		logger.WithError(err).Errorf("failed to run report")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "failed to run report (see logs for more details): %v", err)
		return
	}

	writeResultsResponse(logger, format, result, w, r)
}

func writeResultsResponse(logger log.FieldLogger, format string, result *billing.Result, w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := billing.WriteResults(&buf, format, result); err != nil {
		logger.WithError(err).Errorf("failed to write results")
		writeErrorResponse(logger, w, r, http.StatusInternalServerError, "%v", err)
		return
	}
	w.Header().Set("Content-Type", billing.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment;filename=%s.%s", result.Report, billing.FileExtension(format)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.WithError(err).Error("failed writing HTTP response")
	}
}

type schemasResponse struct {
	MetastoreID string                   `json:"metastoreID"`
	Schemas     []workspace.SystemSchema `json:"schemas"`
}

func (srv *server) listSchemasHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r, srv.rand)
	if srv.deps.MetastoreID == "" {
		writeErrorResponse(logger, w, r, http.StatusServiceUnavailable, "no metastore configured")
		return
	}
	list, err := srv.deps.SchemaLister.ListSystemSchemas(r.Context(), srv.deps.MetastoreID)
	if err != nil {
		code := http.StatusBadGateway
		if workspace.IsNotFound(err) {
			code = http.StatusNotFound
		}
		logger.WithError(err).Errorf("error listing system schemas")
		writeErrorResponse(logger, w, r, code, "error listing system schemas: %v", err)
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, schemasResponse{
		MetastoreID: srv.deps.MetastoreID,
		Schemas:     list.Schemas,
	})
}

type endpointsResponse struct {
	Endpoints []endpoints.Record `json:"endpoints"`
}

func (srv *server) listEndpointsHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r, srv.rand)
	records, err := endpoints.List(r.Context(), srv.deps.EndpointLister)
	if err != nil {
		code := http.StatusBadGateway
		if workspace.IsNotFound(err) {
			code = http.StatusNotFound
		}
		logger.WithError(err).Errorf("error listing serving endpoints")
		writeErrorResponse(logger, w, r, code, "%v", err)
		return
	}
	writeResponseAsJSON(logger, w, http.StatusOK, endpointsResponse{Endpoints: records})
}

// healthinessHandler reports whether the SQL warehouse can be reached.
func (srv *server) healthinessHandler(w http.ResponseWriter, r *http.Request) {
	logger := newRequestLogger(srv.logger, r, srv.rand)
	if srv.deps.Pinger != nil {
		if err := srv.deps.Pinger.PingContext(r.Context()); err != nil {
			logger.WithError(err).Debugf("not healthy: cannot reach SQL warehouse")
			writeResponseAsJSON(logger, w, http.StatusInternalServerError,
				statusResponse{
					Status:  "not healthy",
					Details: "cannot reach SQL warehouse",
				})
			return
		}
	}
	writeResponseAsJSON(logger, w, http.StatusOK, statusResponse{Status: "ok"})
}
