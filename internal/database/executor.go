package database

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/example/dbup/internal/dialect"
	"github.com/example/dbup/internal/logging"
	"github.com/example/dbup/internal/script"
)

// ScriptConnector is a Connector that can also scope work to one script.
type ScriptConnector interface {
	Connector
	WithScriptTransaction(ctx context.Context, fn func(Queryer) error) error
}

var variablePattern = regexp.MustCompile(`\$(\w+)\$`)

// Executor runs script statements against the target database.
type Executor struct {
	conn    ScriptConnector
	dialect dialect.Dialect
	schema  string
	logger  *slog.Logger
}

// NewExecutor creates an Executor. schema names the schema VerifySchema
// ensures exists; it may be empty.
func NewExecutor(conn ScriptConnector, d dialect.Dialect, schema string, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{conn: conn, dialect: d, schema: schema, logger: logger}
}

// VerifySchema creates the configured schema when the dialect supports it,
// and otherwise checks that the target answers queries.
func (e *Executor) VerifySchema(ctx context.Context) error {
	stmt := e.dialect.CreateSchema(e.schema)
	if stmt == "" {
		stmt = "SELECT 1"
	}
	return e.conn.WithConnection(ctx, func(q Queryer) error {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			return NewError("", stmt, "verify schema", err)
		}
		return nil
	})
}

// Execute substitutes variables into the script body, splits it into
// statements and runs them in order. The first failing statement aborts the
// script. A script without statements succeeds without touching the database.
func (e *Executor) Execute(ctx context.Context, s script.Script, variables map[string]string) error {
	body := SubstituteVariables(s.Contents, variables)
	statements := e.dialect.Split(body)

	logger := e.loggerFor(ctx)
	if len(statements) == 0 {
		logger.Debug("script contains no statements", "script", s.Name)
		return nil
	}
	logger.Info("Executing Database Server script", "script", s.Name, "statements", len(statements))

	return e.conn.WithScriptTransaction(ctx, func(q Queryer) error {
		for i, stmt := range statements {
			logger.Debug("executing statement", "script", s.Name, "index", i+1)
			if _, err := q.ExecContext(ctx, stmt); err != nil {
				return NewError(s.Name, stmt, fmt.Sprintf("execute statement %d", i+1), err)
			}
		}
		return nil
	})
}

// loggerFor prefers the logger carried by ctx, which holds run attributes.
func (e *Executor) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return e.logger
}

// SubstituteVariables replaces $name$ tokens whose name is defined in
// variables. Undefined tokens are left untouched.
func SubstituteVariables(body string, variables map[string]string) string {
	if len(variables) == 0 {
		return body
	}
	return variablePattern.ReplaceAllStringFunc(body, func(token string) string {
		name := token[1 : len(token)-1]
		if value, ok := variables[name]; ok {
			return value
		}
		return token
	})
}
