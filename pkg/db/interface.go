package db

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Queryer is the subset of *sql.DB used to run statements against a SQL
// warehouse.
type Queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Close() error
}

type Execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Close() error
}

// QueryExecer is satisfied by *sql.DB.
type QueryExecer interface {
	Queryer
	Execer
}

type loggingDB struct {
	db         QueryExecer
	logger     log.FieldLogger
	logQueries bool
}

// NewLoggingDB wraps db so every statement is logged at debug level when
// logQueries is true.
func NewLoggingDB(db QueryExecer, logger log.FieldLogger, logQueries bool) *loggingDB {
	return &loggingDB{
		db:         db,
		logger:     logger.WithField("component", "sql"),
		logQueries: logQueries,
	}
}

func (l *loggingDB) Query(query string, args ...interface{}) (*sql.Rows, error) {
	if l.logQueries {
		l.logger.Debugf("QUERY: %s [%s]", compact(query), argsString(args...))
	}
	return l.db.Query(query, args...)
}

func (l *loggingDB) Exec(query string, args ...interface{}) (sql.Result, error) {
	if l.logQueries {
		l.logger.Debugf("EXEC: %s [%s]", compact(query), argsString(args...))
	}
	return l.db.Exec(query, args...)
}

func (l *loggingDB) Close() error {
	return l.db.Close()
}

// compact collapses the whitespace of multi-line templated SQL so each
// statement fits on one log line.
func compact(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// argsString pretty prints arguments passed into it for logging query
// arguments
func argsString(args ...interface{}) string {
	margs := make([]string, 0, len(args))
	for i, a := range args {
		var v interface{} = a
		if x, ok := v.(driver.Valuer); ok {
			y, err := x.Value()
			if err == nil {
				v = y
			}
		}
		switch v.(type) {
		case string, []byte:
			v = fmt.Sprintf("%q", v)
		default:
			v = fmt.Sprintf("%v", v)
		}
		margs = append(margs, fmt.Sprintf("%d:%s", i+1, v))
	}
	return strings.Join(margs, " ")
}
