// Package mssql resolves declared column sizes from SQL Server's
// INFORMATION_SCHEMA using go-mssqldb.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldsize/internal/catalog"

	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver
	"github.com/microsoft/go-mssqldb/msdsn"
)

// columnSizeSQL reports CHARACTER_MAXIMUM_LENGTH (-1 for varchar(max)),
// falling back to NUMERIC_PRECISION, then -1.
const columnSizeSQL = `SELECT CAST(COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, -1) AS bigint)
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME())
  AND TABLE_NAME = @p2
  AND COLUMN_NAME = @p3`

// Config holds MSSQL resolver configuration.
type Config struct {
	DSN string
	// Schema is used for unqualified table names. Empty means the login's
	// default schema (usually dbo).
	Schema string
}

type rowScanner interface {
	Scan(dest ...any) error
}

// queryRowFunc runs a single-row query.
type queryRowFunc func(ctx context.Context, query string, args ...any) rowScanner

// Resolver is an MSSQL-backed catalog.Resolver.
type Resolver struct {
	queryRow queryRowFunc
	schema   string
}

// NewResolver opens a connection and returns the Resolver plus a Close
// function for cleanup.
func NewResolver(ctx context.Context, cfg Config) (*Resolver, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return newFromDB(db, cfg.Schema), closeFn, nil
}

func newFromDB(db *sql.DB, schema string) *Resolver {
	return &Resolver{
		queryRow: func(ctx context.Context, query string, args ...any) rowScanner {
			return db.QueryRowContext(ctx, query, args...)
		},
		schema: schema,
	}
}

// ColumnSize implements catalog.Resolver. table may be "schema.table".
func (r *Resolver) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	schema, name := catalog.SplitTable(table, r.schema)

	var size int64
	err := r.queryRow(ctx, columnSizeSQL, schema, name, column).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("mssql: column size %s.%s: %w", table, column, err)
	}
	return int(size), true, nil
}
