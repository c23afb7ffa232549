package endpoints

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	mockwarehouse "github.com/lakehouse-reporting/systables/pkg/warehouse/mock"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

const testTableName = "main.billing_demo.serving_endpoints"

type fakeLister struct {
	endpoints []workspace.ServingEndpoint
	err       error
}

func (f *fakeLister) ListServingEndpoints(ctx context.Context) ([]workspace.ServingEndpoint, error) {
	return f.endpoints, f.err
}

var (
	dbrxEndpoint = workspace.ServingEndpoint{
		Name:                 "ya_dbrx",
		ID:                   "4f2a",
		Creator:              "someone@example.com",
		CreationTimestamp:    1714401526000,
		LastUpdatedTimestamp: 1714401527500,
		State:                &workspace.EndpointState{Ready: "READY", ConfigUpdate: "NOT_UPDATING"},
		Tags:                 []workspace.EndpointTag{{Key: "Cost Center", Value: "ml"}},
		Task:                 "llm/v1/chat",
	}
	bareEndpoint = workspace.ServingEndpoint{
		Name: "scratch",
		ID:   "9c1d",
	}
)

func TestFlatten(t *testing.T) {
	created := time.Date(2024, 4, 29, 14, 38, 46, 0, time.UTC)
	updated := time.Date(2024, 4, 29, 14, 38, 47, int(500*time.Millisecond), time.UTC)

	tests := map[string]struct {
		endpoint workspace.ServingEndpoint
		expected Record
	}{
		"state and tags are broken out": {
			endpoint: dbrxEndpoint,
			expected: Record{
				Name:                 "ya_dbrx",
				ID:                   "4f2a",
				Creator:              "someone@example.com",
				Tags:                 `[{"key":"Cost Center","value":"ml"}]`,
				Task:                 "llm/v1/chat",
				StateUpdate:          "NOT_UPDATING",
				StateReady:           "READY",
				CreationTimestamp:    &created,
				LastUpdatedTimestamp: &updated,
			},
		},
		"missing optional fields stay empty": {
			endpoint: bareEndpoint,
			expected: Record{Name: "scratch", ID: "9c1d"},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			rec, err := Flatten(tt.endpoint)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rec)
		})
	}
}

func TestRecordRowMatchesColumns(t *testing.T) {
	rec, err := Flatten(bareEndpoint)
	require.NoError(t, err)
	row := rec.Row()

	for _, col := range ColumnNames() {
		assert.Contains(t, row, col)
	}
	assert.Len(t, row, len(ColumnNames()))
	assert.Nil(t, row["creator"])
	assert.Equal(t, "varchar", Columns(warehouse.DialectPresto)[0].Type)
}

func TestSync(t *testing.T) {
	table, err := warehouse.ParseTableRef(testTableName)
	require.NoError(t, err)
	createSQL := warehouse.GenerateCreateTableSQL(warehouse.DialectDatabricks, table, Columns(warehouse.DialectDatabricks), tableComment, true)
	deleteSQL := "DELETE FROM `main`.`billing_demo`.`serving_endpoints`"
	insertSQL := "INSERT INTO `main`.`billing_demo`.`serving_endpoints` " +
		"(`name`, `id`, `creator`, `tags`, `task`, `state_update`, `state_ready`, `creation_timestamp`, `last_updated_timestamp`) VALUES\n" +
		"('ya_dbrx', '4f2a', 'someone@example.com', '[{\"key\":\"Cost Center\",\"value\":\"ml\"}]', 'llm/v1/chat', 'NOT_UPDATING', 'READY', TIMESTAMP '2024-04-29 14:38:46.000', TIMESTAMP '2024-04-29 14:38:47.500'),\n" +
		"('scratch', '9c1d', NULL, NULL, NULL, NULL, NULL, NULL, NULL)"

	tests := map[string]struct {
		lister  *fakeLister
		prepare func(m *mockwarehouse.MockExecQueryer)

		expectedCount int
		expectedErr   string
	}{
		"endpoints replace the table contents": {
			lister: &fakeLister{endpoints: []workspace.ServingEndpoint{dbrxEndpoint, bareEndpoint}},
			prepare: func(m *mockwarehouse.MockExecQueryer) {
				gomock.InOrder(
					m.EXPECT().Exec(createSQL).Return(nil),
					m.EXPECT().Exec(deleteSQL).Return(nil),
					m.EXPECT().Exec(insertSQL).Return(nil),
				)
			},
			expectedCount: 2,
		},
		"no endpoints only clears the table": {
			lister: &fakeLister{},
			prepare: func(m *mockwarehouse.MockExecQueryer) {
				gomock.InOrder(
					m.EXPECT().Exec(createSQL).Return(nil),
					m.EXPECT().Exec(deleteSQL).Return(nil),
				)
			},
		},
		"list errors stop before the warehouse": {
			lister:      &fakeLister{err: errors.New("403 forbidden")},
			expectedErr: "unable to list serving endpoints: 403 forbidden",
		},
		"create failures are reported": {
			lister: &fakeLister{endpoints: []workspace.ServingEndpoint{bareEndpoint}},
			prepare: func(m *mockwarehouse.MockExecQueryer) {
				m.EXPECT().Exec(createSQL).Return(errors.New("PERMISSION_DENIED"))
			},
			expectedErr: "unable to create table main.billing_demo.serving_endpoints: PERMISSION_DENIED",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			execer := mockwarehouse.NewMockExecQueryer(ctrl)
			if tt.prepare != nil {
				tt.prepare(execer)
			}

			s, err := NewSyncer(logrus.New(), tt.lister, execer, warehouse.DialectDatabricks, testTableName)
			require.NoError(t, err)

			count, err := s.Sync(context.Background())
			if tt.expectedErr != "" {
				assert.EqualError(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCount, count)
		})
	}
}

func TestNewSyncerRequiresQualifiedTable(t *testing.T) {
	_, err := NewSyncer(logrus.New(), &fakeLister{}, nil, warehouse.DialectDatabricks, "endpoints")
	assert.EqualError(t, err, `table "endpoints" must be fully qualified as catalog.schema.table`)
}
