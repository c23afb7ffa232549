package workspace

import (
	"context"
	"encoding/json"
	"net/http"
)

type EndpointState struct {
	Ready        string `json:"ready,omitempty"`
	ConfigUpdate string `json:"config_update,omitempty"`
}

type EndpointTag struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// ServingEndpoint is a model serving endpoint as returned by the list API.
// Config is kept as raw JSON since only its presence is ever reported.
type ServingEndpoint struct {
	Name                 string          `json:"name"`
	ID                   string          `json:"id"`
	Creator              string          `json:"creator,omitempty"`
	CreationTimestamp    int64           `json:"creation_timestamp,omitempty"`
	LastUpdatedTimestamp int64           `json:"last_updated_timestamp,omitempty"`
	State                *EndpointState  `json:"state,omitempty"`
	Tags                 []EndpointTag   `json:"tags,omitempty"`
	Task                 string          `json:"task,omitempty"`
	Config               json.RawMessage `json:"config,omitempty"`
}

type listServingEndpointsResponse struct {
	Endpoints []ServingEndpoint `json:"endpoints"`
}

// ListServingEndpoints returns every serving endpoint in the workspace.
func (c *Client) ListServingEndpoints(ctx context.Context) ([]ServingEndpoint, error) {
	var resp listServingEndpointsResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/2.0/serving-endpoints", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Endpoints, nil
}
