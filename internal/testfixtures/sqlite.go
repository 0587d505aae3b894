package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/dbup/internal/database"
	"github.com/example/dbup/internal/dialect"
)

// SQLiteHarness provides a temporary SQLite target database with a
// connection manager, for integration-style journal and engine tests.
type SQLiteHarness struct {
	DB      *database.Manager
	Dialect dialect.SQLite
	Clock   *Clock
	Logger  *slog.Logger

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens a file-backed SQLite database in a temporary
// directory. Callers may invoke Close, but the harness also registers a
// cleanup callback with tb.
func NewSQLiteHarness(tb testing.TB, mode database.TransactionMode) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "target.db")
	db, err := database.Open(context.Background(), dialect.SQLite{}, database.DefaultOptions(path))
	if err != nil {
		tb.Fatalf("failed to open target database: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	harness := &SQLiteHarness{
		DB:     database.NewManager(db, mode, logger),
		Clock:  NewTickingClock(ReferenceTime(), time.Second),
		Logger: logger,
		cleanup: func() {
			_ = db.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// Count runs a single-value query and returns the resulting integer.
func (h *SQLiteHarness) Count(tb testing.TB, query string, args ...interface{}) int {
	tb.Helper()

	var count int
	if err := h.DB.DB().QueryRow(query, args...).Scan(&count); err != nil {
		tb.Fatalf("count query %q failed: %v", query, err)
	}
	return count
}

// TableExists reports whether a table with the given name exists.
func (h *SQLiteHarness) TableExists(tb testing.TB, name string) bool {
	tb.Helper()
	return h.Count(tb, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name) > 0
}

// Exec runs a statement directly against the database.
func (h *SQLiteHarness) Exec(tb testing.TB, query string, args ...interface{}) {
	tb.Helper()

	if _, err := h.DB.DB().Exec(query, args...); err != nil {
		tb.Fatalf("exec %q failed: %v", query, err)
	}
}
