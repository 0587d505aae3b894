// Package journal records which scripts have been applied to a database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/dialect"
	"github.com/example/dbup/internal/script"
)

// DefaultTableName is the journal table used when none is configured.
const DefaultTableName = "SchemaVersions"

// TableOptions configures a Table journal.
type TableOptions struct {
	Schema string           // Schema holding the table; empty uses the connection default
	Table  string           // Unquoted table name; defaults to DefaultTableName
	Hasher script.Hasher    // Content hasher for redeployable scripts; defaults to SHA256Hasher and must match the engine's
	Logger *slog.Logger     // Defaults to slog.Default()
	Now    func() time.Time // Clock for the Applied column; defaults to time.Now
}

// Table is a journal stored in a database table with the columns Id,
// ScriptName, Applied and, once a redeployable script has been stored, Hash.
//
// A Table is used by one run at a time. It remembers that the table exists
// after the first positive check, and only tries to add the Hash column on
// the first redeployable store it sees.
type Table struct {
	conn    database.Connector
	dialect dialect.Dialect
	schema  string
	table   string
	hasher  script.Hasher
	logger  *slog.Logger
	now     func() time.Time

	exists        bool
	firstRedeploy bool
}

// NewTable creates a Table journal on the given connection.
func NewTable(conn database.Connector, d dialect.Dialect, opts TableOptions) *Table {
	if opts.Table == "" {
		opts.Table = DefaultTableName
	}
	if opts.Hasher == nil {
		opts.Hasher = script.SHA256Hasher{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Table{
		conn:          conn,
		dialect:       d,
		schema:        opts.Schema,
		table:         opts.Table,
		hasher:        opts.Hasher,
		logger:        opts.Logger,
		now:           opts.Now,
		firstRedeploy: true,
	}
}

// Hasher returns the hasher used for the Hash column. The engine filter
// must compare with the same one.
func (t *Table) Hasher() script.Hasher {
	return t.hasher
}

// QualifiedName returns the quoted, schema-qualified journal table name.
func (t *Table) QualifiedName() string {
	return t.dialect.QualifiedTable(t.schema, t.table)
}

// ExecutedScripts returns the recorded entries in insertion order. A missing
// table yields an empty list. Hashes are read only when the Hash column exists.
func (t *Table) ExecutedScripts(ctx context.Context) ([]script.Executed, error) {
	var entries []script.Executed
	err := t.conn.WithConnection(ctx, func(q database.Queryer) error {
		exists, err := t.tableExists(ctx, q)
		if err != nil {
			return err
		}
		if !exists {
			t.logger.Info("Journal table does not exist", "table", t.QualifiedName())
			return nil
		}

		withHash := t.hashColumnExists(ctx, q)
		t.logger.Info("Fetching list of already executed scripts.", "table", t.QualifiedName())

		entries, err = t.readEntries(ctx, q, withHash)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// EnsureReady creates the journal table when missing. The base shape is
// never altered by this call.
func (t *Table) EnsureReady(ctx context.Context) error {
	return t.conn.WithConnection(ctx, func(q database.Queryer) error {
		return t.ensureTable(ctx, q)
	})
}

// StoreExecutedScript records s as applied now. The first redeployable script
// stored through this Table adds the Hash column when it is absent.
func (t *Table) StoreExecutedScript(ctx context.Context, s script.Script) error {
	return t.conn.WithConnection(ctx, func(q database.Queryer) error {
		if err := t.ensureTable(ctx, q); err != nil {
			return err
		}

		if t.firstRedeploy && s.RedeployOnChange {
			if !t.hashColumnExists(ctx, q) {
				t.logger.Info("Adding redeployable script support", "table", t.QualifiedName())
				stmt := t.dialect.AddHashColumn(t.schema, t.table)
				if _, err := q.ExecContext(ctx, stmt); err != nil {
					return NewError(t.QualifiedName(), "add hash column", err)
				}
			}
			t.firstRedeploy = false
		}

		insert := dialect.Builder(t.dialect).
			Insert(t.QualifiedName()).
			Columns(t.column(dialect.ScriptNameColumn), t.column(dialect.AppliedColumn))
		values := []interface{}{s.Name, t.now().UTC()}
		if s.RedeployOnChange {
			insert = insert.Columns(t.column(dialect.HashColumn))
			values = append(values, t.hasher.Hash(s.Contents))
		}

		query, args, err := insert.Values(values...).ToSql()
		if err != nil {
			return NewError(t.QualifiedName(), "build insert", err)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return NewError(t.QualifiedName(), "insert entry", err)
		}
		return nil
	})
}

// EverUsed reports whether the journal table exists.
func (t *Table) EverUsed(ctx context.Context) (bool, error) {
	var exists bool
	err := t.conn.WithConnection(ctx, func(q database.Queryer) error {
		var err error
		exists, err = t.tableExists(ctx, q)
		return err
	})
	return exists, err
}

// TracksHashes reports whether the Hash column exists. Database errors
// raised by the probe are reported as false.
func (t *Table) TracksHashes(ctx context.Context) (bool, error) {
	var enabled bool
	err := t.conn.WithConnection(ctx, func(q database.Queryer) error {
		enabled = t.hashColumnExists(ctx, q)
		return nil
	})
	return enabled, err
}

func (t *Table) column(name string) string {
	return t.dialect.QuoteIdentifier(name)
}

func (t *Table) ensureTable(ctx context.Context, q database.Queryer) error {
	exists, err := t.tableExists(ctx, q)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	t.logger.Info("Creating the journal table", "table", t.QualifiedName())
	if _, err := q.ExecContext(ctx, t.dialect.CreateJournalTable(t.schema, t.table)); err != nil {
		return NewError(t.QualifiedName(), "create table", err)
	}
	t.logger.Info("The journal table has been created", "table", t.QualifiedName())
	t.exists = true
	return nil
}

func (t *Table) tableExists(ctx context.Context, q database.Queryer) (bool, error) {
	if t.exists {
		return true, nil
	}
	query, args, err := t.dialect.TableExists(t.schema, t.table)
	if err != nil {
		return false, NewError(t.QualifiedName(), "build table probe", err)
	}
	count, err := scalarCount(ctx, q, query, args)
	if err != nil {
		return false, NewError(t.QualifiedName(), "check table exists", err)
	}
	t.exists = count > 0
	return t.exists, nil
}

func (t *Table) hashColumnExists(ctx context.Context, q database.Queryer) bool {
	query, args, err := t.dialect.ColumnExists(t.schema, t.table, dialect.HashColumn)
	if err != nil {
		return false
	}
	count, err := scalarCount(ctx, q, query, args)
	if err != nil {
		if !t.dialect.IsDatabaseError(err) {
			t.logger.Warn("hash column probe failed", "table", t.QualifiedName(), "error", err)
		}
		return false
	}
	return count > 0
}

func (t *Table) readEntries(ctx context.Context, q database.Queryer, withHash bool) ([]script.Executed, error) {
	columns := []string{t.column(dialect.ScriptNameColumn)}
	if withHash {
		columns = append(columns, t.column(dialect.HashColumn))
	}
	query, args, err := dialect.Builder(t.dialect).
		Select(columns...).
		From(t.QualifiedName()).
		OrderBy(t.column(dialect.IDColumn)).
		ToSql()
	if err != nil {
		return nil, NewError(t.QualifiedName(), "build select", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewError(t.QualifiedName(), "read entries", err)
	}
	defer rows.Close()

	entries := make([]script.Executed, 0)
	for rows.Next() {
		var (
			name string
			hash sql.NullString
		)
		dest := []interface{}{&name}
		if withHash {
			dest = append(dest, &hash)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, NewError(t.QualifiedName(), "scan entry", err)
		}

		entry := script.Executed{Name: name}
		if hash.Valid {
			value := hash.String
			entry.Hash = &value
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, NewError(t.QualifiedName(), "read entries", err)
	}
	return entries, nil
}

func scalarCount(ctx context.Context, q database.Queryer, query string, args []interface{}) (int64, error) {
	var count sql.NullInt64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count.Int64, nil
}
