package retention

import (
	"regexp"
	"time"
)

// Dialect adapts cutoff comparisons to how a driver stores timestamps.
type Dialect int

const (
	// DialectNative compares timestamp columns directly. Used for postgres,
	// where the columns have a timestamp type.
	DialectNative Dialect = iota

	// DialectSQLite compares julianday() values. SQLite keeps timestamps as
	// text in whatever format the writer chose ("2006-01-02 15:04:05",
	// "2006-01-02T15:04:05Z", with or without an offset), and text
	// comparison of two such formats does not order them by time.
	DialectSQLite
)

// sqliteCutoffLayout is the layout cutoffs are bound with on SQLite. Values
// without an offset are UTC to SQLite's date functions.
const sqliteCutoffLayout = "2006-01-02 15:04:05.000"

// cutoffComparison matches the "<column> < ?" predicates of the plan.
var cutoffComparison = regexp.MustCompile(`([\w.]+) < \?`)

// DialectFor returns the dialect of a database/sql driver name.
func DialectFor(driver string) Dialect {
	switch driver {
	case "sqlite", "sqlite3":
		return DialectSQLite
	default:
		return DialectNative
	}
}

// String returns the dialect name.
func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "native"
}

// Statement rewrites the cutoff comparisons of a plan statement.
func (d Dialect) Statement(sql string) string {
	if d != DialectSQLite {
		return sql
	}
	return cutoffComparison.ReplaceAllString(sql, "julianday($1) < julianday(?)")
}

// Bind converts cutoff arguments to the form the dialect compares against.
func (d Dialect) Bind(args []any) []any {
	if d != DialectSQLite {
		return args
	}

	bound := make([]any, len(args))
	for i, arg := range args {
		if t, ok := arg.(time.Time); ok {
			bound[i] = t.UTC().Format(sqliteCutoffLayout)
			continue
		}
		bound[i] = arg
	}
	return bound
}
