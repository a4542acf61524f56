// Package sqlite resolves declared column sizes from SQLite table metadata.
//
// SQLite does not enforce lengths, so the size comes from the declared type
// text of the column: VARCHAR(40) → 40, CHAR(2) → 2, DECIMAL(10,2) → 10.
// A column declared without a length (TEXT, INTEGER, no type at all) is
// reported as found with size -1.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fieldsize/internal/catalog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const columnTypeSQL = `SELECT type FROM pragma_table_info(?, ?) WHERE name = ? COLLATE NOCASE`

var declaredLength = regexp.MustCompile(`\(\s*(\d+)`)

// Config holds SQLite resolver configuration.
type Config struct {
	// DSN is a file path or URI, e.g. "catalog.db" or "file:catalog.db?mode=ro".
	DSN string
	// Schema is the attached database name for unqualified tables. Empty
	// means "main".
	Schema string
}

// Resolver is a SQLite-backed catalog.Resolver.
type Resolver struct {
	db     *sql.DB
	schema string
}

// Open opens a SQLite database. In-memory databases are limited to one
// connection so every query sees the same database.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// New wraps an open database. The caller keeps ownership of db.
func New(db *sql.DB, schema string) *Resolver {
	if schema == "" {
		schema = "main"
	}
	return &Resolver{db: db, schema: schema}
}

// NewResolver opens cfg.DSN and returns the Resolver plus a Close function.
func NewResolver(ctx context.Context, cfg Config) (*Resolver, func(), error) {
	db, err := Open(cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return New(db, cfg.Schema), func() { _ = db.Close() }, nil
}

// ColumnSize implements catalog.Resolver. table may be "schema.table".
// Column names match case-insensitively, as SQLite identifiers do.
func (r *Resolver) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	schema, name := catalog.SplitTable(table, r.schema)

	var declared sql.NullString
	err := r.db.QueryRowContext(ctx, columnTypeSQL, name, schema, column).Scan(&declared)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("sqlite: column size %s.%s: %w", table, column, err)
	}
	return parseDeclaredSize(declared.String), true, nil
}

// parseDeclaredSize returns the first number in parentheses of a declared
// type, or -1 when there is none.
func parseDeclaredSize(declared string) int {
	m := declaredLength.FindStringSubmatch(declared)
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}
