package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/export"
)

type usageOptions struct {
	format       string
	endpointName string
	tag          string
	limit        int
	lookback     string

	exportBucket string
	exportPrefix string
	exportRegion string
}

func newUsageCmd() *cobra.Command {
	var opts usageOptions

	cmd := &cobra.Command{
		Use:   "usage <report>",
		Short: "Run a model serving usage or cost report against the billing system tables",
		Long: fmt.Sprintf(`Run one of the billing reports and print the results, or upload them to S3
when --export-bucket is set.

Available reports: %s`, strings.Join(billing.ReportNames(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUsageReport(cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", billing.FormatTabular, "output format: csv, json or tabular")
	cmd.Flags().StringVar(&opts.endpointName, "endpoint", "", "serving endpoint name, required by endpoint-monthly-cost")
	cmd.Flags().StringVar(&opts.tag, "tag", billing.DefaultTag, "custom tag key cost-by-tag groups by")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "maximum number of rows, 0 uses the report's default")
	cmd.Flags().StringVar(&opts.lookback, "lookback", "", "how far back reports look, as days (30) or a duration (2w, 36h)")
	cmd.Flags().StringVar(&opts.exportBucket, "export-bucket", "", "if set, results are uploaded to this S3 bucket instead of printed")
	cmd.Flags().StringVar(&opts.exportPrefix, "export-prefix", "", "key prefix for exported results")
	cmd.Flags().StringVar(&opts.exportRegion, "export-region", "", "AWS region of the export bucket")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the available reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printReportCatalog(cmd.OutOrStdout())
		},
	}

	exportsCmd := &cobra.Command{
		Use:   "exports <report>",
		Short: "List the results of a report exported to S3, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exporter, err := export.NewS3Exporter(logger, opts.exportRegion, opts.exportBucket, opts.exportPrefix)
			if err != nil {
				return err
			}
			objects, err := exporter.List(args[0])
			if err != nil {
				return err
			}
			return printExports(cmd.OutOrStdout(), exporter.Bucket, objects)
		},
	}
	exportsCmd.Flags().StringVar(&opts.exportBucket, "export-bucket", "", "S3 bucket results were exported to")
	exportsCmd.Flags().StringVar(&opts.exportPrefix, "export-prefix", "", "key prefix of exported results")
	exportsCmd.Flags().StringVar(&opts.exportRegion, "export-region", "", "AWS region of the export bucket")

	cmd.AddCommand(listCmd, exportsCmd)
	return cmd
}

func (o usageOptions) inputs() (billing.Inputs, error) {
	lookbackDays, err := billing.ParseLookbackDays(o.lookback)
	if err != nil {
		return billing.Inputs{}, err
	}
	if o.limit < 0 {
		return billing.Inputs{}, fmt.Errorf("limit cannot be negative, got %d", o.limit)
	}
	inputs := cfg.tables()
	inputs.EndpointName = o.endpointName
	inputs.Tag = o.tag
	inputs.Limit = o.limit
	inputs.LookbackDays = lookbackDays
	return inputs, nil
}

func runUsageReport(w io.Writer, name string, opts usageOptions) error {
	format, err := billing.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	report, err := billing.GetReport(name)
	if err != nil {
		return err
	}
	inputs, err := opts.inputs()
	if err != nil {
		return err
	}
	if err := report.Validate(inputs); err != nil {
		return err
	}

	// set up the exporter before running the query so bad export flags fail fast
	var exporter *export.S3Exporter
	if opts.exportBucket != "" {
		exporter, err = export.NewS3Exporter(logger, opts.exportRegion, opts.exportBucket, opts.exportPrefix)
		if err != nil {
			return err
		}
	}

	conn, queryer, dialect, err := openWarehouse(rootCtx)
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := billing.NewReporter(logger, queryer, dialect).Run(report.Name, inputs)
	if err != nil {
		return err
	}

	if exporter == nil {
		return billing.WriteResults(w, format, result)
	}
	url, err := exporter.Export(result, format)
	if err != nil {
		return err
	}
	logger.Infof("exported %d rows to %s", len(result.Rows), url)
	_, err = fmt.Fprintln(w, url)
	return err
}

func printReportCatalog(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION")
	for _, report := range billing.Reports() {
		fmt.Fprintf(tw, "%s\t%s\n", report.Name, report.Description)
	}
	return tw.Flush()
}

func printExports(w io.Writer, bucket string, objects []export.Object) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tSIZE\tLAST MODIFIED")
	for _, obj := range objects {
		fmt.Fprintf(tw, "s3://%s/%s\t%d\t%s\n", bucket, obj.Key, obj.Size, obj.LastModified.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}
