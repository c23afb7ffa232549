package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

type schemaClient interface {
	ListSystemSchemas(ctx context.Context, metastoreID string) (*workspace.SystemSchemaList, error)
	EnableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error)
	DisableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error)
}

func newSchemasCmd() *cobra.Command {
	var (
		tabular         bool
		allowDeprecated bool
	)

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List, enable and disable the system schemas of a metastore",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the state of every system schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, metastoreID, err := schemaClientFromFlags()
			if err != nil {
				return err
			}
			return printSchemas(rootCtx, cmd.OutOrStdout(), client, metastoreID, tabular)
		},
	}
	listCmd.Flags().BoolVar(&tabular, "tabular", false, "print a table instead of the raw API response")

	enableCmd := &cobra.Command{
		Use:   "enable [schema...]",
		Short: fmt.Sprintf("Enable system schemas, by default %v", workspace.DefaultSystemSchemas),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, metastoreID, err := schemaClientFromFlags()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = workspace.DefaultSystemSchemas
			}
			return enableSchemas(rootCtx, cmd.OutOrStdout(), client, metastoreID, args, allowDeprecated)
		},
	}
	enableCmd.Flags().BoolVar(&allowDeprecated, "allow-deprecated", false, "allow enabling deprecated schemas such as lineage and operational_data")

	disableCmd := &cobra.Command{
		Use:   "disable <schema>",
		Short: "Disable a system schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, metastoreID, err := schemaClientFromFlags()
			if err != nil {
				return err
			}
			body, err := client.DisableSystemSchema(rootCtx, metastoreID, args[0])
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(listCmd, enableCmd, disableCmd)
	return cmd
}

func schemaClientFromFlags() (*workspace.Client, string, error) {
	client, err := newWorkspaceClient()
	if err != nil {
		return nil, "", err
	}
	metastoreID, err := resolveMetastoreID(rootCtx, client)
	if err != nil {
		return nil, "", err
	}
	return client, metastoreID, nil
}

func printRaw(w io.Writer, body []byte) error {
	if len(body) == 0 {
		body = []byte("{}")
	}
	_, err := fmt.Fprintln(w, string(body))
	return err
}

func printSchemas(ctx context.Context, w io.Writer, client schemaClient, metastoreID string, tabular bool) error {
	list, err := client.ListSystemSchemas(ctx, metastoreID)
	if err != nil {
		return err
	}
	if !tabular {
		return printRaw(w, list.Raw)
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "SCHEMA\tSTATE")
	for _, s := range list.Schemas {
		fmt.Fprintf(tw, "%s\t%s\n", s.Schema, s.State)
	}
	return tw.Flush()
}

// enableSchemas prints the schema states, enables each schema in turn
// printing the response, then prints the states again. It stops at the
// first failure.
func enableSchemas(ctx context.Context, w io.Writer, client schemaClient, metastoreID string, schemas []string, allowDeprecated bool) error {
	if !allowDeprecated {
		for _, schema := range schemas {
			if workspace.IsDeprecatedSystemSchema(schema) {
				return fmt.Errorf("the %s schema is deprecated and should not be enabled, pass --allow-deprecated to enable it anyway", schema)
			}
		}
	}

	if err := printSchemas(ctx, w, client, metastoreID, false); err != nil {
		return err
	}
	for _, schema := range schemas {
		logger.Infof("enabling system schema %s", schema)
		body, err := client.EnableSystemSchema(ctx, metastoreID, schema)
		if err != nil {
			return fmt.Errorf("unable to enable system schema %s: %v", schema, err)
		}
		if err := printRaw(w, body); err != nil {
			return err
		}
	}
	return printSchemas(ctx, w, client, metastoreID, false)
}
