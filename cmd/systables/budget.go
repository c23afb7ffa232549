package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/budget"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

func newBudgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Create, remove and evaluate monthly spending alerts on serving endpoints",
	}
	cmd.AddCommand(
		newBudgetCreateCmd(),
		newBudgetDeleteCmd(),
		newBudgetCheckCmd(),
		newBudgetWatchCmd(),
	)
	return cmd
}

func newBudgetCreateCmd() *cobra.Command {
	var spec budget.Spec

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Save the endpoint's monthly cost query and alert when it crosses --threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "endpoint", "threshold"); err != nil {
				return err
			}
			dialect, err := cfg.dialect()
			if err != nil {
				return err
			}
			client, err := newWorkspaceClient()
			if err != nil {
				return err
			}
			spec.WarehouseID = cfg.WarehouseID
			result, err := budget.NewManager(logger, client, dialect, cfg.tables()).Create(rootCtx, spec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&spec.EndpointName, "endpoint", "", "serving endpoint the budget applies to")
	cmd.Flags().Float64Var(&spec.Threshold, "threshold", 0, "monthly list-price cost in dollars that triggers the alert")
	cmd.Flags().StringVar(&spec.Op, "op", budget.DefaultOp, fmt.Sprintf("comparison between the cost and the threshold, one of: %v", workspace.AlertOperators))
	cmd.Flags().StringVar(&spec.QueryName, "query-name", budget.DefaultQueryName, "name of the saved query")
	cmd.Flags().StringVar(&spec.AlertName, "alert-name", budget.DefaultAlertName, "name of the alert")
	cmd.Flags().IntVar(&spec.Rearm, "rearm", 0, "seconds before a triggered alert can notify again, 0 notifies once")
	return cmd
}

func newBudgetDeleteCmd() *cobra.Command {
	var queryID, alertID string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a budget alert and its saved query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if queryID == "" && alertID == "" {
				return errors.New("at least one of --query-id or --alert-id is required")
			}
			dialect, err := cfg.dialect()
			if err != nil {
				return err
			}
			client, err := newWorkspaceClient()
			if err != nil {
				return err
			}
			return budget.NewManager(logger, client, dialect, cfg.tables()).Delete(rootCtx, queryID, alertID)
		},
	}
	cmd.Flags().StringVar(&queryID, "query-id", "", "id of the saved query to delete")
	cmd.Flags().StringVar(&alertID, "alert-id", "", "id of the alert to delete")
	return cmd
}

func newBudgetCheckCmd() *cobra.Command {
	var target budget.Target

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compute the endpoint's month to date cost and compare it to --threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "endpoint", "threshold"); err != nil {
				return err
			}
			conn, queryer, dialect, err := openWarehouse(rootCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			checker := budget.NewChecker(logger, billing.NewReporter(logger, queryer, dialect), cfg.tables())
			eval, err := checker.Check(target)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), eval)
		},
	}
	cmd.Flags().StringVar(&target.EndpointName, "endpoint", "", "serving endpoint to check")
	cmd.Flags().Float64Var(&target.Threshold, "threshold", 0, "monthly list-price cost in dollars")
	cmd.Flags().StringVar(&target.Op, "op", budget.DefaultOp, "comparison between the cost and the threshold")
	return cmd
}

func newBudgetWatchCmd() *cobra.Command {
	var (
		schedule string
		targets  []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check budget targets on a schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseTargets(targets)
			if err != nil {
				return err
			}
			conn, queryer, dialect, err := openWarehouse(rootCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			checker := budget.NewChecker(logger, billing.NewReporter(logger, queryer, dialect), cfg.tables())
			watcher, err := budget.NewWatcher(logger, checker, schedule, parsed)
			if err != nil {
				return err
			}
			return watcher.Run(rootCtx)
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", budget.DefaultSchedule, "cron expression or descriptor the targets are checked on")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "budget target as endpoint=threshold, may be repeated")
	return cmd
}

// requireFlags fails unless every named flag was set, on the command line or
// through its SYSTABLES_ environment variable.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		if !cmd.Flags().Changed(name) {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flags not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// parseTargets parses endpoint=threshold pairs.
func parseTargets(values []string) ([]budget.Target, error) {
	targets := make([]budget.Target, 0, len(values))
	for _, value := range values {
		i := strings.LastIndex(value, "=")
		if i <= 0 || i == len(value)-1 {
			return nil, fmt.Errorf("invalid budget target %q, expected endpoint=threshold", value)
		}
		threshold, err := strconv.ParseFloat(value[i+1:], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold in budget target %q: %v", value, err)
		}
		targets = append(targets, budget.Target{
			EndpointName: value[:i],
			Threshold:    threshold,
			Op:           budget.DefaultOp,
		})
	}
	return targets, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
