package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
)

func init() {
	// sqlx does not know the pure Go driver name; it uses '?' placeholders.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Config contains configuration for the store connection.
type Config struct {
	// Driver is one of "sqlite", "sqlite3" or "postgres".
	// Default: "sqlite"
	Driver string

	// DSN is the full data source name. For SQLite drivers Path is used
	// when DSN is empty.
	DSN string

	// Path is the SQLite database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// SQLite always uses a single connection.
	// Default: 5
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 2
	MaxIdleConns int

	// ConnMaxLifetime is the maximum lifetime of a connection. 0 means unlimited.
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long SQLite waits for a lock before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// ConnectTimeout bounds the initial ping.
	// Default: 10 seconds
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:         DriverSQLite,
		Path:           "data/truncator.db",
		MaxOpenConns:   5,
		MaxIdleConns:   2,
		BusyTimeout:    5 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// Store is a connection to the database holding the purged schema.
type Store struct {
	db     *sqlx.DB
	config *Config
	logger *slog.Logger
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	applyDefaults(config)

	logger := slog.Default().With("component", "store", "driver", config.Driver)

	dsn, err := dataSourceName(config)
	if err != nil {
		return nil, NewStorageError(config.Driver, "configure", err)
	}

	db, err := sqlx.Open(config.Driver, dsn)
	if err != nil {
		return nil, NewStorageError(config.Driver, "open", err)
	}

	if isSQLite(config.Driver) {
		// SQLite only supports a single writer.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, NewStorageError(config.Driver, "ping", err)
	}

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("store opened",
		"max_open_conns", db.Stats().MaxOpenConnections,
	)

	return s, nil
}

// initialize applies per-connection settings the DSN cannot carry.
func (s *Store) initialize(ctx context.Context) error {
	if !isSQLite(s.config.Driver) {
		return nil
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", s.config.BusyTimeout.Milliseconds()),
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return NewStorageError(s.config.Driver, "pragma", err)
		}
	}
	s.logger.Debug("sqlite pragmas applied")

	return nil
}

func applyDefaults(config *Config) {
	defaults := DefaultConfig()
	if config.Driver == "" {
		config.Driver = defaults.Driver
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = defaults.MaxOpenConns
	}
	if config.MaxIdleConns <= 0 {
		config.MaxIdleConns = defaults.MaxIdleConns
	}
	if config.BusyTimeout <= 0 {
		config.BusyTimeout = defaults.BusyTimeout
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
}

func isSQLite(driver string) bool {
	return driver == DriverSQLite || driver == DriverSQLite3
}

// dataSourceName builds the DSN for the configured driver. SQLite DSNs write
// timestamps as "2006-01-02 15:04:05.999999999-07:00" with both drivers.
// Rows written by other applications may use any format SQLite's date
// functions accept; the purger compares them through julianday().
func dataSourceName(config *Config) (string, error) {
	switch config.Driver {
	case DriverPostgres:
		if config.DSN == "" {
			return "", fmt.Errorf("postgres requires a dsn")
		}
		return config.DSN, nil

	case DriverSQLite, DriverSQLite3:
		if config.DSN != "" {
			return config.DSN, nil
		}
		if config.Path == "" {
			return "", fmt.Errorf("sqlite requires a path or dsn")
		}

		q := url.Values{}
		busy := fmt.Sprintf("%d", config.BusyTimeout.Milliseconds())
		if config.Driver == DriverSQLite {
			q.Add("_pragma", "foreign_keys(1)")
			q.Add("_pragma", "busy_timeout("+busy+")")
			q.Set("_time_format", "sqlite")
		} else {
			q.Set("_foreign_keys", "on")
			q.Set("_busy_timeout", busy)
		}
		return config.Path + "?" + q.Encode(), nil

	default:
		return "", fmt.Errorf("unsupported driver %q (supported: %s)", config.Driver,
			strings.Join([]string{DriverSQLite, DriverSQLite3, DriverPostgres}, ", "))
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// DriverName returns the configured driver name. The purger picks its
// timestamp comparison from it.
func (s *Store) DriverName() string {
	return s.config.Driver
}

// ExecContext executes a statement outside any transaction.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

// BeginTxx starts a transaction.
func (s *Store) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, NewStorageError(s.config.Driver, "begin", err)
	}
	return tx, nil
}

// Rebind converts '?' placeholders to the driver's bind style.
func (s *Store) Rebind(query string) string {
	return s.db.Rebind(query)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(s.config.Driver, "close", err)
	}
	s.logger.Debug("store closed")
	return nil
}
