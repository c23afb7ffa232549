package workspace

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// System schema states reported by Unity Catalog.
const (
	SchemaStateAvailable          = "AVAILABLE"
	SchemaStateEnableInitialized  = "ENABLE_INITIALIZED"
	SchemaStateEnableCompleted    = "ENABLE_COMPLETED"
	SchemaStateDisableInitialized = "DISABLE_INITIALIZED"
	SchemaStateUnavailable        = "UNAVAILABLE"
)

var (
	// DefaultSystemSchemas are enabled when no schema is named. The access
	// schema holds the audit and lineage tables.
	DefaultSystemSchemas = []string{"access", "billing"}

	// DeprecatedSystemSchemas were folded into other schemas and should not
	// be enabled on new metastores.
	DeprecatedSystemSchemas = []string{"lineage", "operational_data"}

	errEmptyMetastoreID = errors.New("metastore id cannot be empty")
	errEmptySchemaName  = errors.New("system schema name cannot be empty")
)

type SystemSchema struct {
	Schema string `json:"schema"`
	State  string `json:"state"`
}

// SystemSchemaList is the decoded list response along with the body the
// workspace returned.
type SystemSchemaList struct {
	Schemas []SystemSchema `json:"schemas"`
	Raw     []byte         `json:"-"`
}

// State returns the state of the named schema, or "" if it is not listed.
func (l *SystemSchemaList) State(schema string) string {
	for _, s := range l.Schemas {
		if s.Schema == schema {
			return s.State
		}
	}
	return ""
}

type MetastoreAssignment struct {
	WorkspaceID        int64  `json:"workspace_id"`
	MetastoreID        string `json:"metastore_id"`
	DefaultCatalogName string `json:"default_catalog_name"`
}

func systemSchemasPath(metastoreID string) string {
	return fmt.Sprintf("/api/2.0/unity-catalog/metastores/%s/systemschemas", url.PathEscape(metastoreID))
}

func (c *Client) ListSystemSchemas(ctx context.Context, metastoreID string) (*SystemSchemaList, error) {
	if metastoreID == "" {
		return nil, errEmptyMetastoreID
	}
	list := &SystemSchemaList{}
	raw, err := c.do(ctx, http.MethodGet, systemSchemasPath(metastoreID), nil, list)
	if err != nil {
		return nil, err
	}
	list.Raw = raw
	return list, nil
}

// EnableSystemSchema returns the raw response body of the PUT.
func (c *Client) EnableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error) {
	if metastoreID == "" {
		return nil, errEmptyMetastoreID
	}
	if schema == "" {
		return nil, errEmptySchemaName
	}
	return c.do(ctx, http.MethodPut, systemSchemasPath(metastoreID)+"/"+url.PathEscape(schema), nil, nil)
}

func (c *Client) DisableSystemSchema(ctx context.Context, metastoreID, schema string) ([]byte, error) {
	if metastoreID == "" {
		return nil, errEmptyMetastoreID
	}
	if schema == "" {
		return nil, errEmptySchemaName
	}
	return c.do(ctx, http.MethodDelete, systemSchemasPath(metastoreID)+"/"+url.PathEscape(schema), nil, nil)
}

// CurrentMetastoreAssignment returns the metastore attached to this
// workspace.
func (c *Client) CurrentMetastoreAssignment(ctx context.Context) (*MetastoreAssignment, error) {
	assignment := &MetastoreAssignment{}
	if _, err := c.do(ctx, http.MethodGet, "/api/2.1/unity-catalog/current-metastore-assignment", nil, assignment); err != nil {
		return nil, err
	}
	if assignment.MetastoreID == "" {
		return nil, errors.New("workspace has no metastore assigned")
	}
	return assignment, nil
}

// IsDeprecatedSystemSchema reports whether schema is one of
// DeprecatedSystemSchemas.
func IsDeprecatedSystemSchema(schema string) bool {
	for _, s := range DeprecatedSystemSchemas {
		if s == schema {
			return true
		}
	}
	return false
}
