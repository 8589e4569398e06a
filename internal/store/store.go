package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/nestq/internal/lattice"
	"github.com/roach88/nestq/internal/segment"
)

// DriverName is the database/sql driver with the nested_* functions.
const DriverName = "sqlite3_nestq"

// RowColumn holds the original row position of every loaded row.
const RowColumn = "__row"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: registerFunctions,
		})
	})
}

// Store is a SQLite database holding loaded tables.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path. Use ":memory:"
// for a private in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	registerDriver()

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection works
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// lives exactly as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query executes a query and returns the resulting rows.
// Callers are responsible for closing the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// LoadTable (re)creates the SQLite table for t and inserts every row in
// one transaction.
func (s *Store) LoadTable(ctx context.Context, t *segment.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load %s: %w", t.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(t.Name)); err != nil {
		return fmt.Errorf("drop %s: %w", t.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(t)); err != nil {
		return fmt.Errorf("create %s: %w", t.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL(t))
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", t.Name, err)
	}
	defer stmt.Close()

	args := make([]any, len(t.Columns)+1)
	for i := range t.Rows {
		args[0] = int64(i)
		for j, col := range t.Columns {
			args[j+1] = ToSQL(t.Value(i, col.Name), StoresJSON(col.Kind))
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", t.Name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load %s: %w", t.Name, err)
	}
	return nil
}

// StoresJSON reports whether a column kind is stored as JSON text.
func StoresJSON(kind lattice.ColumnKind) bool {
	return IsJSONType(kind.ExtractionType())
}

func createTableSQL(t *segment.Table) string {
	cols := make([]string, 0, len(t.Columns)+1)
	cols = append(cols, QuoteIdent(RowColumn)+" INTEGER NOT NULL")
	for _, col := range t.Columns {
		cols = append(cols, QuoteIdent(col.Name)+" "+sqlColumnType(col.Kind))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(t.Name), strings.Join(cols, ", "))
}

func insertSQL(t *segment.Table) string {
	names := make([]string, 0, len(t.Columns)+1)
	names = append(names, QuoteIdent(RowColumn))
	for _, col := range t.Columns {
		names = append(names, QuoteIdent(col.Name))
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", QuoteIdent(t.Name), strings.Join(names, ", "), marks)
}

// sqlColumnType picks a declared type whose affinity never rewrites stored
// values: JSON text must stay TEXT.
func sqlColumnType(kind lattice.ColumnKind) string {
	switch kind {
	case lattice.ColumnLong:
		return "INTEGER"
	case lattice.ColumnDouble:
		return "REAL"
	}
	return "TEXT"
}

// QuoteIdent quotes a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
