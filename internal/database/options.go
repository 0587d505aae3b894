package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/dbup/internal/dialect"
)

// Options holds connection settings for the target database.
type Options struct {
	// DSN is the driver specific data source name.
	DSN string

	// MaxOpenConns sets the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns sets the maximum number of idle connections.
	MaxIdleConns int

	// ConnMaxLifetime sets the maximum lifetime of connections.
	ConnMaxLifetime time.Duration

	// BusyTimeout sets how long SQLite waits for database locks.
	BusyTimeout time.Duration

	// ForeignKeys enables SQLite foreign key enforcement.
	ForeignKeys bool
}

// DefaultOptions returns options with sensible pool defaults for dsn.
func DefaultOptions(dsn string) Options {
	return Options{
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		BusyTimeout:     30 * time.Second,
		ForeignKeys:     true,
	}
}

// InMemorySQLiteOptions returns options for a private in-memory SQLite
// database. A single connection is used so every statement sees the same database.
func InMemorySQLiteOptions() Options {
	return Options{
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		BusyTimeout:  5 * time.Second,
		ForeignKeys:  true,
	}
}

// Validate checks the options for values that cannot work.
func (o Options) Validate() error {
	var problems []string
	if strings.TrimSpace(o.DSN) == "" {
		problems = append(problems, "DSN cannot be empty")
	}
	if o.MaxOpenConns < 0 {
		problems = append(problems, "MaxOpenConns cannot be negative")
	}
	if o.MaxIdleConns < 0 {
		problems = append(problems, "MaxIdleConns cannot be negative")
	}
	if o.ConnMaxLifetime < 0 {
		problems = append(problems, "ConnMaxLifetime cannot be negative")
	}
	if o.BusyTimeout < 0 {
		problems = append(problems, "BusyTimeout cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(problems, ", "))
	}
	return nil
}

// Open opens and configures a connection pool for the dialect.
func Open(ctx context.Context, d dialect.Dialect, opts Options) (*sql.DB, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if d.Name() == "sqlite" {
		if err := ensureSQLiteDir(opts.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.DriverName(), opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", d.Name(), err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if d.Name() == "sqlite" {
		if err := configureSQLite(ctx, db, opts); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure SQLite database: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", d.Name(), err)
	}

	return db, nil
}

// configureSQLite applies connection PRAGMAs. With a pool of more than one
// connection they only reach the connection that runs them, so file databases
// should prefer DSN parameters for settings that must hold everywhere.
func configureSQLite(ctx context.Context, db *sql.DB, opts Options) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
	}
	if opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to run %s: %w", pragma, err)
		}
	}
	return nil
}

// ensureSQLiteDir creates the parent directory of a file database.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}
	return nil
}
