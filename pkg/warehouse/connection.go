package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/databricks/databricks-sql-go"
	_ "github.com/prestodb/presto-go-client/presto"
	log "github.com/sirupsen/logrus"
)

const (
	databricksPort = 443
)

var errMissingWarehouse = errors.New("a SQL warehouse id or an explicit --sql-dsn is required")

// Config selects the SQL engine the billing reports run on.
type Config struct {
	Dialect Dialect
	// DSN, when set, is handed to the driver unchanged.
	DSN string

	// Used to build a Databricks DSN when DSN is empty.
	Host        string
	Token       string
	WarehouseID string
}

// DriverName maps a dialect to the database/sql driver registered for it.
func (c Config) DriverName() string {
	if c.Dialect == DialectPresto {
		return "presto"
	}
	return "databricks"
}

func (c Config) dataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Dialect == DialectPresto {
		return "", errors.New("the presto dialect requires --sql-dsn")
	}
	if c.WarehouseID == "" {
		return "", errMissingWarehouse
	}
	return DatabricksDSN(c.Host, c.Token, c.WarehouseID)
}

// DatabricksDSN builds a databricks-sql-go connection string for a SQL
// warehouse addressed by id.
func DatabricksDSN(host, token, warehouseID string) (string, error) {
	if host == "" {
		return "", errors.New("workspace host cannot be empty")
	}
	if token == "" {
		return "", errors.New("access token cannot be empty")
	}
	hostname := host
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		hostname = u.Hostname()
	}
	hostname = strings.TrimSuffix(hostname, "/")
	return fmt.Sprintf("token:%s@%s:%d/sql/1.0/warehouses/%s", url.PathEscape(token), hostname, databricksPort, warehouseID), nil
}

// Open opens and pings a connection to the configured engine.
func Open(ctx context.Context, logger log.FieldLogger, cfg Config) (*sql.DB, error) {
	dsn, err := cfg.dataSourceName()
	if err != nil {
		return nil, err
	}
	logger = logger.WithFields(log.Fields{
		"driver":      cfg.DriverName(),
		"warehouseID": cfg.WarehouseID,
	})
	logger.Debugf("opening SQL connection")

	conn, err := sql.Open(cfg.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open %s connection: %v", cfg.DriverName(), err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to reach %s: %v", cfg.DriverName(), err)
	}
	logger.Infof("connected to SQL warehouse")
	return conn, nil
}
