// Package database manages connections to the target database and runs
// script statements against it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Queryer is the subset of *sql.DB and *sql.Tx used to talk to the target.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Connector runs fn against the connection of the current operation.
type Connector interface {
	WithConnection(ctx context.Context, fn func(Queryer) error) error
}

// Scope is an acquired operation. Release must be called exactly once on
// every exit path; runErr is the outcome of the work done inside the scope.
// Release reports whether the work done inside the scope was discarded.
type Scope interface {
	Release(runErr error) (discarded bool, err error)
}

// ErrOperationInProgress indicates an attempt to start an operation while
// another one holds the manager.
var ErrOperationInProgress = errors.New("an operation is already in progress")

// TransactionMode controls how script execution is wrapped in transactions.
type TransactionMode int

const (
	// NoTransaction runs every statement in autocommit mode.
	NoTransaction TransactionMode = iota
	// TransactionPerScript wraps each script in its own transaction.
	TransactionPerScript
	// SingleTransaction wraps the whole operation in one transaction.
	SingleTransaction
)

func (m TransactionMode) String() string {
	switch m {
	case NoTransaction:
		return "none"
	case TransactionPerScript:
		return "per_script"
	case SingleTransaction:
		return "single"
	default:
		return fmt.Sprintf("TransactionMode(%d)", int(m))
	}
}

// ParseTransactionMode maps a configuration value to a TransactionMode.
func ParseTransactionMode(value string) (TransactionMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return NoTransaction, nil
	case "per_script", "per-script":
		return TransactionPerScript, nil
	case "single":
		return SingleTransaction, nil
	default:
		return NoTransaction, fmt.Errorf("unknown transaction mode %q", value)
	}
}

// Manager owns the connection pool and the transaction of the operation in
// progress. It is not safe for concurrent operations; runs are sequential.
type Manager struct {
	db       *sql.DB
	mode     TransactionMode
	logger   *slog.Logger
	tx       *sql.Tx
	scriptTx *sql.Tx
}

// NewManager creates a Manager over db.
func NewManager(db *sql.DB, mode TransactionMode, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{db: db, mode: mode, logger: logger}
}

// DB returns the underlying connection pool.
func (m *Manager) DB() *sql.DB {
	return m.db
}

// Mode returns the configured transaction mode.
func (m *Manager) Mode() TransactionMode {
	return m.mode
}

// TryConnect checks that the database is reachable.
func (m *Manager) TryConnect(ctx context.Context) (bool, string) {
	if err := m.db.PingContext(ctx); err != nil {
		return false, err.Error()
	}
	return true, ""
}

// OperationStarting acquires the operation scope. In SingleTransaction mode
// it opens the transaction every later call is routed through.
func (m *Manager) OperationStarting(ctx context.Context) (Scope, error) {
	if m.tx != nil {
		return nil, ErrOperationInProgress
	}
	if m.mode != SingleTransaction {
		return &operation{manager: m}, nil
	}

	m.logger.Info("Beginning transaction")
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, NewError("", "", "begin transaction", err)
	}
	m.tx = tx
	return &operation{manager: m, tx: tx}, nil
}

// WithConnection runs fn on the transaction of the script or operation in
// progress, otherwise on the pool.
func (m *Manager) WithConnection(ctx context.Context, fn func(Queryer) error) error {
	if m.scriptTx != nil {
		return fn(m.scriptTx)
	}
	if m.tx != nil {
		return fn(m.tx)
	}
	return fn(m.db)
}

// WithScriptTransaction runs fn inside a dedicated transaction in
// TransactionPerScript mode. Every WithConnection call made while fn runs
// joins that transaction, and nested calls reuse it. In the other modes it
// behaves like WithConnection.
func (m *Manager) WithScriptTransaction(ctx context.Context, fn func(Queryer) error) error {
	if m.mode != TransactionPerScript || m.tx != nil || m.scriptTx != nil {
		return m.WithConnection(ctx, fn)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return NewError("", "", "begin transaction", err)
	}
	m.scriptTx = tx

	defer func() {
		m.scriptTx = nil
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("script transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return NewError("", "", "commit transaction", err)
	}
	return nil
}

type operation struct {
	manager  *Manager
	tx       *sql.Tx
	released bool
}

func (o *operation) Release(runErr error) (bool, error) {
	if o.released {
		return false, nil
	}
	o.released = true
	if o.tx == nil {
		return false, nil
	}
	o.manager.tx = nil

	if runErr != nil {
		o.manager.logger.Info("Error occurred when executing scripts, transaction will be rolled back")
		if err := o.tx.Rollback(); err != nil {
			return true, NewError("", "", "rollback transaction", err)
		}
		return true, nil
	}

	if err := o.tx.Commit(); err != nil {
		return true, NewError("", "", "commit transaction", err)
	}
	return false, nil
}
