package endpoints

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

var (
	servingEndpointsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "systables",
			Name:      "serving_endpoints",
			Help:      "Number of serving endpoints found by the last sync.",
		},
	)

	syncDurationHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "systables",
			Name:      "endpoints_sync_duration_seconds",
			Help:      "Duration to sync serving endpoints into the warehouse.",
			Buckets:   []float64{1.0, 5.0, 15.0, 60.0},
		},
	)
)

func init() {
	prometheus.MustRegister(servingEndpointsGauge)
	prometheus.MustRegister(syncDurationHistogram)
}

// Syncer copies the workspace's serving endpoints into a warehouse table so
// usage can be joined against endpoint names.
type Syncer struct {
	logger  logrus.FieldLogger
	lister  Lister
	execer  warehouse.Execer
	dialect warehouse.Dialect
	table   warehouse.TableRef
	now     func() time.Time

	// syncLock ensures only one sync rewrites the table at a time
	syncLock sync.Mutex
}

func NewSyncer(logger logrus.FieldLogger, lister Lister, execer warehouse.Execer, dialect warehouse.Dialect, tableName string) (*Syncer, error) {
	table, err := warehouse.ParseTableRef(tableName)
	if err != nil {
		return nil, err
	}
	return &Syncer{
		logger: logger.WithFields(logrus.Fields{
			"component": "endpointSyncer",
			"tableName": table.String(),
		}),
		lister:  lister,
		execer:  execer,
		dialect: dialect,
		table:   table,
		now:     time.Now,
	}, nil
}

// List fetches and flattens every endpoint without touching the warehouse.
func (s *Syncer) List(ctx context.Context) ([]Record, error) {
	return List(ctx, s.lister)
}

// Sync replaces the contents of the endpoints table with the endpoints
// currently in the workspace and returns how many were written.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	s.syncLock.Lock()
	defer s.syncLock.Unlock()

	start := s.now()
	records, err := List(ctx, s.lister)
	if err != nil {
		return 0, err
	}
	s.logger.Infof("There are %d endpoints in your workspace!", len(records))

	columns := Columns(s.dialect)
	if err := warehouse.CreateTable(s.execer, s.dialect, s.table, columns, tableComment, true); err != nil {
		return 0, fmt.Errorf("unable to create table %s: %v", s.table, err)
	}
	if err := warehouse.DeleteFrom(s.execer, s.dialect, s.table); err != nil {
		return 0, fmt.Errorf("unable to clear table %s: %v", s.table, err)
	}

	rows := make([]warehouse.Row, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	if err := warehouse.InsertValues(s.execer, s.dialect, s.table, columns, rows); err != nil {
		return 0, fmt.Errorf("unable to store endpoints in %s: %v", s.table, err)
	}

	servingEndpointsGauge.Set(float64(len(records)))
	syncDurationHistogram.Observe(s.now().Sub(start).Seconds())
	s.logger.Debugf("stored %d endpoints", len(records))
	return len(records), nil
}

// List fetches every endpoint from lister and flattens it.
func List(ctx context.Context, lister Lister) ([]Record, error) {
	eps, err := lister.ListServingEndpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to list serving endpoints: %w", err)
	}
	records := make([]Record, 0, len(eps))
	for _, ep := range eps {
		rec, err := Flatten(ep)
		if err != nil {
			return nil, fmt.Errorf("unable to flatten endpoint %s: %v", ep.Name, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
