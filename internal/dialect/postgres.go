package dialect

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// Postgres targets PostgreSQL through github.com/lib/pq.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) DriverName() string { return "postgres" }

func (Postgres) Placeholder() sq.PlaceholderFormat { return sq.Dollar }

func (Postgres) QuoteIdentifier(name string) string { return pq.QuoteIdentifier(name) }

func (d Postgres) QualifiedTable(schema, table string) string { return qualify(d, schema, table) }

func (d Postgres) TableExists(schema, table string) (string, []interface{}, error) {
	return schemaScoped(Builder(d).
		Select("COUNT(*)").
		From("information_schema.tables").
		Where(sq.Eq{"table_name": table}), schema, "current_schema()").
		ToSql()
}

func (d Postgres) ColumnExists(schema, table, column string) (string, []interface{}, error) {
	return schemaScoped(Builder(d).
		Select("COUNT(*)").
		From("information_schema.columns").
		Where(sq.Eq{"table_name": table}).
		Where(sq.Eq{"column_name": column}), schema, "current_schema()").
		ToSql()
}

func (d Postgres) CreateJournalTable(schema, table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
	%s SERIAL NOT NULL,
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

func (d Postgres) AddHashColumn(schema, table string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR(255) NULL",
		d.QualifiedTable(schema, table), d.QuoteIdentifier(HashColumn))
}

func (d Postgres) CreateSchema(schema string) string {
	if schema == "" {
		return ""
	}
	return "CREATE SCHEMA IF NOT EXISTS " + d.QuoteIdentifier(schema)
}

func (Postgres) Split(body string) []string {
	return splitStatements(body, splitOptions{dollarQuotes: true})
}

func (Postgres) IsDatabaseError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr)
}
