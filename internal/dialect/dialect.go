// Package dialect describes the SQL engines the journal and executor can
// target: identifier quoting, journal DDL, catalog probes, statement
// splitting and driver error classification.
package dialect

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Journal table column names. The base shape never changes once created;
// HashColumn is added later by an additive migration.
const (
	IDColumn         = "Id"
	ScriptNameColumn = "ScriptName"
	AppliedColumn    = "Applied"
	HashColumn       = "Hash"
)

// Dialect is the set of engine-specific behavior needed by the journal and executor.
type Dialect interface {
	// Name is the configuration name of the dialect (sqlite, mysql, postgres).
	Name() string

	// DriverName is the database/sql driver registered for the dialect.
	DriverName() string

	// Placeholder is the bind parameter format used when building queries.
	Placeholder() sq.PlaceholderFormat

	// QuoteIdentifier quotes a single identifier.
	QuoteIdentifier(name string) string

	// QualifiedTable returns the quoted, optionally schema-qualified table name.
	QualifiedTable(schema, table string) string

	// TableExists builds a query returning a positive count when the table exists.
	TableExists(schema, table string) (string, []interface{}, error)

	// ColumnExists builds a query returning a positive count when the column exists.
	ColumnExists(schema, table, column string) (string, []interface{}, error)

	// CreateJournalTable returns the DDL for the base journal shape.
	CreateJournalTable(schema, table string) string

	// AddHashColumn returns the DDL adding the nullable hash column.
	AddHashColumn(schema, table string) string

	// CreateSchema returns the DDL ensuring the schema exists, or "" when the
	// engine has no schema concept.
	CreateSchema(schema string) string

	// Split breaks a script body into executable statements.
	Split(body string) []string

	// IsDatabaseError reports whether err was raised by the database server
	// (as opposed to a connectivity or client-side failure).
	IsDatabaseError(err error) bool
}

// Builder returns a squirrel statement builder using the dialect's placeholders.
func Builder(d Dialect) sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder())
}

// PrimaryKeyName returns the journal primary key constraint name for table.
func PrimaryKeyName(table string) string {
	return "PK_" + table + "_Id"
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql", "pg":
		return Postgres{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", name)
	}
}

func quoteWith(name string, quote string) string {
	return quote + strings.ReplaceAll(name, quote, quote+quote) + quote
}

func qualify(d Dialect, schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}
