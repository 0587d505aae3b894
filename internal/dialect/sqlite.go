package dialect

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"modernc.org/sqlite"
)

// SQLite targets SQLite through the pure Go modernc.org/sqlite driver.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) DriverName() string { return "sqlite" }

func (SQLite) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (SQLite) QuoteIdentifier(name string) string { return quoteWith(name, `"`) }

func (d SQLite) QualifiedTable(schema, table string) string { return qualify(d, schema, table) }

// TableExists consults sqlite_master of the main or the named attached database.
func (d SQLite) TableExists(schema, table string) (string, []interface{}, error) {
	master := "sqlite_master"
	if schema != "" {
		master = d.QuoteIdentifier(schema) + ".sqlite_master"
	}
	return Builder(d).
		Select("COUNT(*)").
		From(master).
		Where(sq.Eq{"type": "table"}).
		Where(sq.Eq{"name": table}).
		ToSql()
}

// ColumnExists uses the pragma_table_info table-valued function.
func (d SQLite) ColumnExists(schema, table, column string) (string, []interface{}, error) {
	if schema != "" {
		return "SELECT COUNT(*) FROM pragma_table_info(?, ?) WHERE name = ?",
			[]interface{}{table, schema, column}, nil
	}
	return "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?",
		[]interface{}{table, column}, nil
}

func (d SQLite) CreateJournalTable(schema, table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	%s INTEGER CONSTRAINT %s PRIMARY KEY AUTOINCREMENT NOT NULL,
	%s TEXT NOT NULL,
	%s DATETIME NOT NULL
)`,
		d.QualifiedTable(schema, table),
		d.QuoteIdentifier(IDColumn), d.QuoteIdentifier(PrimaryKeyName(table)),
		d.QuoteIdentifier(ScriptNameColumn),
		d.QuoteIdentifier(AppliedColumn))
}

func (d SQLite) AddHashColumn(schema, table string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TEXT NULL",
		d.QualifiedTable(schema, table), d.QuoteIdentifier(HashColumn))
}

// CreateSchema returns "": SQLite schemas are attached databases, not DDL objects.
func (SQLite) CreateSchema(string) string { return "" }

func (SQLite) Split(body string) []string {
	return splitStatements(body, splitOptions{})
}

func (SQLite) IsDatabaseError(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr)
}
