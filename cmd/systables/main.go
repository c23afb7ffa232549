package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/cmd/helpers"
	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/db"
	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

const envPrefix = "SYSTABLES"

// config holds the flags shared by every command.
type config struct {
	Host        string
	Token       string
	MetastoreID string
	WarehouseID string
	WorkspaceID string

	SQLDialect string
	SQLDSN     string
	LogQueries bool

	UsageTable      string
	ListPricesTable string
	EndpointsTable  string
	SKUPattern      string

	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int

	Log helpers.LogConfig
}

var (
	cfg    config
	logger log.FieldLogger = log.StandardLogger()
	// rootCtx is cancelled on SIGINT or SIGTERM.
	rootCtx = context.Background()

	// standard variables used by the Databricks CLI and SDKs
	databricksEnvVars = map[string]string{
		"DATABRICKS_HOST":  "host",
		"DATABRICKS_TOKEN": "token",
	}
)

var rootCmd = &cobra.Command{
	Use:           "systables",
	Short:         "Enable Unity Catalog system tables and attribute model serving cost",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := helpers.SetFlagsFromEnv(cmd.Flags(), envPrefix); err != nil {
			return fmt.Errorf("error setting flags from environment variables: %v", err)
		}
		if err := helpers.MapEnvVarToFlag(databricksEnvVars, cmd.Flags()); err != nil {
			return err
		}
		var err error
		logger, err = helpers.SetupLogger(cfg.Log, log.Fields{"app": "systables"})
		if err != nil {
			return err
		}
		logger.Debugf("config: %s", spew.Sprintf("%+v", cfg.redacted()))
		return nil
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

func init() {
	// globally set time to UTC
	time.Local = time.UTC

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Log.Level, "log-level", log.InfoLevel.String(), "log level")
	flags.BoolVar(&cfg.Log.FullTimestamp, "log-timestamp", true, "log full timestamp if true, otherwise log time since startup")
	flags.BoolVar(&cfg.Log.DisableTimestamp, "disable-timestamp", false, "disable timestamp logging")
	flags.BoolVar(&cfg.Log.JSON, "log-json", false, "log as JSON instead of text")
	flags.BoolVar(&cfg.LogQueries, "log-queries", false, "log every SQL statement at debug level")

	flags.StringVar(&cfg.Host, "host", "", "the workspace URL, defaults to $DATABRICKS_HOST")
	flags.StringVar(&cfg.Token, "token", "", "personal access token, defaults to $DATABRICKS_TOKEN")
	flags.StringVar(&cfg.MetastoreID, "metastore-id", "", "Unity Catalog metastore id, if empty the metastore assigned to the workspace is used")
	flags.StringVar(&cfg.WarehouseID, "warehouse-id", "", "SQL warehouse used to run billing queries")
	flags.StringVar(&cfg.WorkspaceID, "workspace-id", "", "if set, only usage billed to this workspace is reported")

	flags.StringVar(&cfg.SQLDialect, "sql-dialect", string(warehouse.DialectDatabricks), "SQL engine the billing tables are read through: databricks or presto")
	flags.StringVar(&cfg.SQLDSN, "sql-dsn", "", "data source name passed unchanged to the SQL driver, required for presto")

	flags.StringVar(&cfg.UsageTable, "usage-table", billing.DefaultUsageTable, "fully qualified billable usage table")
	flags.StringVar(&cfg.ListPricesTable, "list-prices-table", billing.DefaultListPricesTable, "fully qualified list prices table")
	flags.StringVar(&cfg.EndpointsTable, "endpoints-table", "", "fully qualified table serving endpoints are synced to, e.g. main.billing.serving_endpoints")
	flags.StringVar(&cfg.SKUPattern, "sku-pattern", billing.DefaultSKUPattern, "LIKE pattern selecting model serving SKUs")

	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", workspace.DefaultTimeout, "timeout for each workspace REST request")
	flags.Float64Var(&cfg.RateLimit, "rate-limit", workspace.DefaultRateLimit, "maximum workspace REST requests per second")
	flags.IntVar(&cfg.RateBurst, "rate-burst", workspace.DefaultRateBurst, "workspace REST request burst size")

	rootCmd.AddCommand(
		newSchemasCmd(),
		newUsageCmd(),
		newEndpointsCmd(),
		newBudgetCmd(),
		newServeCmd(),
	)
}

func main() {
	rootCtx = helpers.SetupSignals(context.Background(), logger)
	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Fatalf("error executing command: %v", err)
	}
}

func (c config) redacted() config {
	if c.Token != "" {
		c.Token = "<redacted>"
	}
	return c
}

// tables returns the report inputs every command shares.
func (c config) tables() billing.Inputs {
	return billing.Inputs{
		WorkspaceID:     c.WorkspaceID,
		UsageTable:      c.UsageTable,
		ListPricesTable: c.ListPricesTable,
		EndpointsTable:  c.EndpointsTable,
		SKUPattern:      c.SKUPattern,
	}
}

func (c config) dialect() (warehouse.Dialect, error) {
	return warehouse.ParseDialect(c.SQLDialect)
}

func newWorkspaceClient() (*workspace.Client, error) {
	return workspace.NewClient(logger, workspace.Config{
		Host:      cfg.Host,
		Token:     cfg.Token,
		Timeout:   cfg.RequestTimeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	})
}

// openWarehouse connects to the configured SQL engine. The returned *sql.DB
// must be closed by the caller.
func openWarehouse(ctx context.Context) (*sql.DB, *warehouse.DB, warehouse.Dialect, error) {
	dialect, err := cfg.dialect()
	if err != nil {
		return nil, nil, "", err
	}
	conn, err := warehouse.Open(ctx, logger, warehouse.Config{
		Dialect:     dialect,
		DSN:         cfg.SQLDSN,
		Host:        cfg.Host,
		Token:       cfg.Token,
		WarehouseID: cfg.WarehouseID,
	})
	if err != nil {
		return nil, nil, "", err
	}
	return conn, warehouse.NewDB(db.NewLoggingDB(conn, logger, cfg.LogQueries)), dialect, nil
}

// resolveMetastoreID returns --metastore-id or the metastore assigned to the
// workspace.
func resolveMetastoreID(ctx context.Context, client *workspace.Client) (string, error) {
	if cfg.MetastoreID != "" {
		return cfg.MetastoreID, nil
	}
	assignment, err := client.CurrentMetastoreAssignment(ctx)
	if err != nil {
		return "", fmt.Errorf("unable to determine metastore, set --metastore-id: %v", err)
	}
	logger.Debugf("using metastore %s assigned to workspace %d", assignment.MetastoreID, assignment.WorkspaceID)
	return assignment.MetastoreID, nil
}
