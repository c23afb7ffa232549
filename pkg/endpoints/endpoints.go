package endpoints

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lakehouse-reporting/systables/pkg/warehouse"
	"github.com/lakehouse-reporting/systables/pkg/workspace"
)

const tableComment = "Model serving endpoints synced from the workspace REST API"

// Lister is the part of the workspace client used to discover endpoints.
type Lister interface {
	ListServingEndpoints(ctx context.Context) ([]workspace.ServingEndpoint, error)
}

// Record is one serving endpoint flattened into table columns.
type Record struct {
	Name                 string     `json:"name"`
	ID                   string     `json:"id"`
	Creator              string     `json:"creator"`
	Tags                 string     `json:"tags,omitempty"`
	Task                 string     `json:"task,omitempty"`
	StateUpdate          string     `json:"state_update,omitempty"`
	StateReady           string     `json:"state_ready,omitempty"`
	CreationTimestamp    *time.Time `json:"creation_timestamp,omitempty"`
	LastUpdatedTimestamp *time.Time `json:"last_updated_timestamp,omitempty"`
}

// Columns returns the endpoints table schema in column order.
func Columns(d warehouse.Dialect) []warehouse.Column {
	str := "string"
	if d == warehouse.DialectPresto {
		str = "varchar"
	}
	return []warehouse.Column{
		{Name: "name", Type: str},
		{Name: "id", Type: str},
		{Name: "creator", Type: str},
		{Name: "tags", Type: str},
		{Name: "task", Type: str},
		{Name: "state_update", Type: str},
		{Name: "state_ready", Type: str},
		{Name: "creation_timestamp", Type: "timestamp"},
		{Name: "last_updated_timestamp", Type: "timestamp"},
	}
}

// ColumnNames lists the endpoints table columns in order.
func ColumnNames() []string {
	cols := Columns(warehouse.DialectDatabricks)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Flatten breaks the nested state and tags of an endpoint out into
// separate columns. Tags are kept as a JSON array.
func Flatten(ep workspace.ServingEndpoint) (Record, error) {
	rec := Record{
		Name:                 ep.Name,
		ID:                   ep.ID,
		Creator:              ep.Creator,
		Task:                 ep.Task,
		CreationTimestamp:    fromMillis(ep.CreationTimestamp),
		LastUpdatedTimestamp: fromMillis(ep.LastUpdatedTimestamp),
	}
	if ep.State != nil {
		rec.StateUpdate = ep.State.ConfigUpdate
		rec.StateReady = ep.State.Ready
	}
	if len(ep.Tags) != 0 {
		b, err := json.Marshal(ep.Tags)
		if err != nil {
			return Record{}, err
		}
		rec.Tags = string(b)
	}
	return rec, nil
}

// Row converts the record into a warehouse row keyed by column name.
// Empty optional fields become NULL.
func (r Record) Row() warehouse.Row {
	return warehouse.Row{
		"name":                   r.Name,
		"id":                     r.ID,
		"creator":                nullString(r.Creator),
		"tags":                   nullString(r.Tags),
		"task":                   nullString(r.Task),
		"state_update":           nullString(r.StateUpdate),
		"state_ready":            nullString(r.StateReady),
		"creation_timestamp":     r.CreationTimestamp,
		"last_updated_timestamp": r.LastUpdatedTimestamp,
	}
}

func fromMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.Unix(0, ms*int64(time.Millisecond)).UTC()
	return &t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
