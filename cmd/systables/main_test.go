package main

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-reporting/systables/pkg/billing"
	"github.com/lakehouse-reporting/systables/pkg/budget"
	"github.com/lakehouse-reporting/systables/pkg/endpoints"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

type fakeSchemaClient struct {
	listCalls int
	enabled   []string
	enableErr error
}

func (f *fakeSchemaClient) ListSystemSchemas(ctx context.Context, metastoreID string) (*workspace.SystemSchemaList, error) {
	f.listCalls++
	state := workspace.SchemaStateAvailable
	if len(f.enabled) > 0 {
		state = workspace.SchemaStateEnableCompleted
	}
	return &workspace.SystemSchemaList{
		Schemas: []workspace.SystemSchema{{Schema: "billing", State: state}},
		Raw:     []byte(`{"schemas":[{"schema":"billing","state":"` + state + `"}]}`),
	}, nil
}

func (f *fakeSchemaClient) EnableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error) {
	if f.enableErr != nil {
		return nil, f.enableErr
	}
	f.enabled = append(f.enabled, schema)
	return []byte("{}"), nil
}

func (f *fakeSchemaClient) DisableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error) {
	return nil, nil
}

func TestEnableSchemas(t *testing.T) {
	client := &fakeSchemaClient{}
	var out bytes.Buffer
	require.NoError(t, enableSchemas(context.Background(), &out, client, "ms-1", []string{"access", "billing"}, false))

	assert.Equal(t, []string{"access", "billing"}, client.enabled)
	assert.Equal(t, 2, client.listCalls)
	assert.Equal(t, `{"schemas":[{"schema":"billing","state":"AVAILABLE"}]}
{}
{}
{"schemas":[{"schema":"billing","state":"ENABLE_COMPLETED"}]}
`, out.String())
}

func TestEnableSchemasRefusesDeprecated(t *testing.T) {
	client := &fakeSchemaClient{}
	var out bytes.Buffer
	err := enableSchemas(context.Background(), &out, client, "ms-1", []string{"billing", "lineage"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lineage schema is deprecated")
	assert.Empty(t, client.enabled)
	assert.Zero(t, client.listCalls)

	require.NoError(t, enableSchemas(context.Background(), &out, client, "ms-1", []string{"lineage"}, true))
	assert.Equal(t, []string{"lineage"}, client.enabled)
}

func TestEnableSchemasStopsOnError(t *testing.T) {
	client := &fakeSchemaClient{enableErr: errors.New("PERMISSION_DENIED")}
	var out bytes.Buffer
	err := enableSchemas(context.Background(), &out, client, "ms-1", []string{"access", "billing"}, false)
	assert.EqualError(t, err, "unable to enable system schema access: PERMISSION_DENIED")
	assert.Equal(t, 1, client.listCalls)
}

func TestPrintSchemasTabular(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printSchemas(context.Background(), &out, &fakeSchemaClient{}, "ms-1", true))
	assert.Equal(t, "SCHEMA   STATE\nbilling  AVAILABLE\n", out.String())
}

func TestParseTargets(t *testing.T) {
	tests := map[string]struct {
		values        []string
		expected      []budget.Target
		expectedError string
	}{
		"none": {
			expected: []budget.Target{},
		},
		"several": {
			values: []string{"ya_dbrx=1000", "llama=2.5"},
			expected: []budget.Target{
				{EndpointName: "ya_dbrx", Threshold: 1000, Op: ">"},
				{EndpointName: "llama", Threshold: 2.5, Op: ">"},
			},
		},
		"missing threshold": {
			values:        []string{"ya_dbrx="},
			expectedError: `invalid budget target "ya_dbrx=", expected endpoint=threshold`,
		},
		"missing separator": {
			values:        []string{"ya_dbrx"},
			expectedError: `invalid budget target "ya_dbrx", expected endpoint=threshold`,
		},
		"bad threshold": {
			values:        []string{"ya_dbrx=lots"},
			expectedError: `invalid threshold in budget target "ya_dbrx=lots"`,
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			targets, err := parseTargets(tt.values)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, targets)
		})
	}
}

func TestConfig(t *testing.T) {
	c := config{
		Token:           "dapi123",
		WorkspaceID:     "6051921418418893",
		UsageTable:      billing.DefaultUsageTable,
		ListPricesTable: billing.DefaultListPricesTable,
		EndpointsTable:  "main.billing.serving_endpoints",
		SKUPattern:      billing.DefaultSKUPattern,
	}
	assert.Equal(t, "<redacted>", c.redacted().Token)
	assert.Equal(t, "dapi123", c.Token)
	assert.Equal(t, billing.Inputs{
		WorkspaceID:     "6051921418418893",
		UsageTable:      billing.DefaultUsageTable,
		ListPricesTable: billing.DefaultListPricesTable,
		EndpointsTable:  "main.billing.serving_endpoints",
		SKUPattern:      billing.DefaultSKUPattern,
	}, c.tables())

	_, err := config{SQLDialect: "mysql"}.dialect()
	assert.Error(t, err)
}

func TestUsageOptionsInputs(t *testing.T) {
	inputs, err := usageOptions{endpointName: "ya_dbrx", limit: 3, lookback: "2w"}.inputs()
	require.NoError(t, err)
	assert.Equal(t, "ya_dbrx", inputs.EndpointName)
	assert.Equal(t, 3, inputs.Limit)
	assert.Equal(t, 14, inputs.LookbackDays)

	_, err = usageOptions{limit: -1}.inputs()
	assert.EqualError(t, err, "limit cannot be negative, got -1")
}

func TestWriteEndpoints(t *testing.T) {
	created := time.Date(2024, 4, 29, 14, 38, 46, 0, time.UTC)
	records := []endpoints.Record{
		{Name: "ya_dbrx", ID: "4f2a", Creator: "jane@example.com", CreationTimestamp: &created},
		{Name: "bare", ID: "77"},
	}
	var out bytes.Buffer
	require.NoError(t, writeEndpoints(&out, billing.FormatCSV, records))
	assert.Equal(t, "name,id,creator,tags,task,state_update,state_ready,creation_timestamp,last_updated_timestamp\n"+
		"ya_dbrx,4f2a,jane@example.com,,,,,2024-04-29T14:38:46Z,\n"+
		"bare,77,,,,,,,\n", out.String())
}

func TestPrintReportCatalog(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printReportCatalog(&out))
	for _, name := range billing.ReportNames() {
		assert.Contains(t, out.String(), name)
	}
}

func TestBudgetCommandsRequireThreshold(t *testing.T) {
	tests := map[string]struct {
		cmd           *cobra.Command
		args          []string
		expectedError string
	}{
		"create without threshold": {
			cmd:           newBudgetCreateCmd(),
			args:          []string{"--endpoint", "ya_dbrx"},
			expectedError: "required flags not set: --threshold",
		},
		"create without flags": {
			cmd:           newBudgetCreateCmd(),
			args:          []string{},
			expectedError: "required flags not set: --endpoint, --threshold",
		},
		"check without threshold": {
			cmd:           newBudgetCheckCmd(),
			args:          []string{"--endpoint", "ya_dbrx", "--op", ">="},
			expectedError: "required flags not set: --threshold",
		},
	}
	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			tt.cmd.SetOutput(ioutil.Discard)
			tt.cmd.SetArgs(tt.args)
			assert.EqualError(t, tt.cmd.Execute(), tt.expectedError)
		})
	}
}

func TestRequireFlagsAcceptsZeroThreshold(t *testing.T) {
	cmd := newBudgetCreateCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--endpoint", "ya_dbrx", "--threshold", "0"}))
	assert.NoError(t, requireFlags(cmd, "endpoint", "threshold"))
}
