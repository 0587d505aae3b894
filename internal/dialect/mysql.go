package dialect

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

// MySQL targets MySQL and MariaDB through github.com/go-sql-driver/mysql.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) DriverName() string { return "mysql" }

func (MySQL) Placeholder() sq.PlaceholderFormat { return sq.Question }

func (MySQL) QuoteIdentifier(name string) string { return quoteWith(name, "`") }

func (d MySQL) QualifiedTable(schema, table string) string { return qualify(d, schema, table) }

func (d MySQL) TableExists(schema, table string) (string, []interface{}, error) {
	return schemaScoped(Builder(d).
		Select("COUNT(*)").
		From("information_schema.tables").
		Where(sq.Eq{"table_name": table}), schema, "DATABASE()").
		ToSql()
}

func (d MySQL) ColumnExists(schema, table, column string) (string, []interface{}, error) {
	return schemaScoped(Builder(d).
		Select("COUNT(*)").
		From("information_schema.columns").
		Where(sq.Eq{"table_name": table}).
		Where(sq.Eq{"column_name": column}), schema, "DATABASE()").
		ToSql()
}

func (d MySQL) CreateJournalTable(schema, table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	%s INT NOT NULL AUTO_INCREMENT,
	%s VARCHAR(255) NOT NULL,
	%s TIMESTAMP NOT NULL,
	CONSTRAINT %s PRIMARY KEY (%s)
)`,
		d.QualifiedTable(schema, table),
		d.QuoteIdentifier(IDColumn),
		d.QuoteIdentifier(ScriptNameColumn),
		d.QuoteIdentifier(AppliedColumn),
		d.QuoteIdentifier(PrimaryKeyName(table)), d.QuoteIdentifier(IDColumn))
}

func (d MySQL) AddHashColumn(schema, table string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR(255) NULL",
		d.QualifiedTable(schema, table), d.QuoteIdentifier(HashColumn))
}

func (d MySQL) CreateSchema(schema string) string {
	if schema == "" {
		return ""
	}
	return "CREATE DATABASE IF NOT EXISTS " + d.QuoteIdentifier(schema)
}

func (MySQL) Split(body string) []string {
	return splitStatements(body, splitOptions{backtickQuotes: true, backslashEscapes: true})
}

func (MySQL) IsDatabaseError(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr)
}

// schemaScoped restricts a catalog query to schema, or to the session's
// current schema expression when schema is empty.
func schemaScoped(query sq.SelectBuilder, schema, current string) sq.SelectBuilder {
	if schema == "" {
		return query.Where("table_schema = " + current)
	}
	return query.Where(sq.Eq{"table_schema": schema})
}
