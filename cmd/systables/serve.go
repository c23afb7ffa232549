package main

import (
	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/pkg/api"
	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/budget"
)

func newServeCmd() *cobra.Command {
	var (
		apiCfg         api.Config
		budgetTargets  []string
		budgetSchedule string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve billing reports, schema status and endpoints over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets, err := parseTargets(budgetTargets)
			if err != nil {
				return err
			}
			client, err := newWorkspaceClient()
			if err != nil {
				return err
			}
			metastoreID, err := resolveMetastoreID(rootCtx, client)
			if err != nil {
				// the schemas route answers 503 without a metastore
				logger.WithError(err).Warnf("system schema status will not be served")
			}

			conn, queryer, dialect, err := openWarehouse(rootCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			reporter := billing.NewReporter(logger, queryer, dialect)
			var background []api.Background
			if len(targets) > 0 {
				watcher, err := budget.NewWatcher(logger, budget.NewChecker(logger, reporter, cfg.tables()), budgetSchedule, targets)
				if err != nil {
					return err
				}
				background = append(background, watcher.Run)
			}

			deps := api.Dependencies{
				Reporter:       reporter,
				SchemaLister:   client,
				EndpointLister: client,
				Pinger:         conn,
				MetastoreID:    metastoreID,
				Tables:         cfg.tables(),
			}
			return api.Serve(rootCtx, logger, apiCfg, deps, background...)
		},
	}
	cmd.Flags().StringVar(&apiCfg.ListenAddr, "listen", ":8080", "host:port to serve the HTTP API on")
	cmd.Flags().StringVar(&apiCfg.MetricsListenAddr, "metrics-listen", ":8082", "host:port to serve Prometheus metrics on")
	cmd.Flags().StringVar(&apiCfg.PprofListenAddr, "pprof-listen", "", "host:port to serve pprof on, disabled when empty")
	cmd.Flags().StringArrayVar(&budgetTargets, "budget-target", nil, "budget target as endpoint=threshold checked in the background, may be repeated")
	cmd.Flags().StringVar(&budgetSchedule, "budget-schedule", budget.DefaultSchedule, "cron expression or descriptor budget targets are checked on")
	return cmd
}
