package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/endpoints"
	"github.com/lakehouse-reporting/systables/pkg/warehouse"
)

func newEndpointsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List model serving endpoints or sync them to a table",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the workspace's serving endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outFormat, err := billing.ParseFormat(format)
			if err != nil {
				return err
			}
			client, err := newWorkspaceClient()
			if err != nil {
				return err
			}
			records, err := endpoints.List(rootCtx, client)
			if err != nil {
				return err
			}
			return writeEndpoints(cmd.OutOrStdout(), outFormat, records)
		},
	}
	listCmd.Flags().StringVar(&format, "format", billing.FormatTabular, "output format: csv, json or tabular")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the contents of --endpoints-table with the workspace's serving endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.EndpointsTable == "" {
				return errors.New("--endpoints-table must be set to sync endpoints")
			}
			client, err := newWorkspaceClient()
			if err != nil {
				return err
			}
			conn, db, dialect, err := openWarehouse(rootCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			syncer, err := endpoints.NewSyncer(logger, client, db, dialect, cfg.EndpointsTable)
			if err != nil {
				return err
			}
			count, err := syncer.Sync(rootCtx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "synced %d endpoints to %s\n", count, cfg.EndpointsTable)
			return err
		},
	}

	cmd.AddCommand(listCmd, syncCmd)
	return cmd
}

// writeEndpoints renders records the same way report results are rendered.
func writeEndpoints(w io.Writer, format string, records []endpoints.Record) error {
	rows := make([]warehouse.Row, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	return billing.WriteResults(w, format, &billing.Result{
		Report:  "endpoints",
		Columns: endpoints.ColumnNames(),
		Rows:    rows,
		RunAt:   time.Now().UTC(),
	})
}
