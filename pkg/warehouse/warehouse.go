package warehouse

import (
	"fmt"

	"github.com/lakehouse-reporting/systables/pkg/db"
)

// Row is a single result row keyed by column name.
type Row map[string]interface{}

type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type Queryer interface {
	Query(query string) ([]Row, error)
}

type Execer interface {
	Exec(query string) error
}

type ExecQueryer interface {
	Queryer
	Execer
}

// DB adapts a database/sql handle to ExecQueryer.
type DB struct {
	queryer db.Queryer
}

func NewDB(queryer db.Queryer) *DB {
	return &DB{queryer}
}

func (d *DB) Query(query string) ([]Row, error) {
	return ExecuteSelect(d.queryer, query)
}

func (d *DB) Exec(query string) error {
	return ExecuteQuery(d.queryer, query)
}

// ExecuteSelect runs query and returns every row as a map of column name to
// the driver's value.
func ExecuteSelect(queryer db.Queryer, query string) ([]Row, error) {
	rows, err := queryer.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []Row
	for rows.Next() {
		columns := make([]interface{}, len(cols))
		columnPointers := make([]interface{}, len(cols))
		for i := range columns {
			columnPointers[i] = &columns[i]
		}

		if err := rows.Scan(columnPointers...); err != nil {
			return nil, err
		}

		m := make(Row, len(cols))
		for i, colName := range cols {
			val := columnPointers[i].(*interface{})
			m[colName] = *val
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// ExecuteQuery runs a statement whose rows, if any, are discarded.
func ExecuteQuery(queryer db.Queryer, query string) error {
	rows, err := queryer.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()
	// Drivers that stream results only surface statement failures while
	// iterating, so the rows must be drained before checking Err.
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("SQL error: %v", err)
	}
	return nil
}
