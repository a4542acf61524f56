// Package mysql resolves declared column sizes from MySQL/MariaDB
// information_schema using go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldsize/internal/catalog"

	"github.com/go-sql-driver/mysql"
)

// columnSizeSQL reports CHARACTER_MAXIMUM_LENGTH, falling back to
// NUMERIC_PRECISION, then -1. Unqualified tables are looked up in DATABASE().
const columnSizeSQL = `SELECT CAST(COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, -1) AS SIGNED)
FROM information_schema.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
  AND TABLE_NAME = ?
  AND COLUMN_NAME = ?`

// Config holds MySQL resolver configuration.
type Config struct {
	// DSN uses the go-sql-driver format: user:pass@tcp(host:3306)/db.
	DSN string
	// Schema is used for unqualified table names. Empty means the DSN's
	// database.
	Schema string
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryRowFunc func(ctx context.Context, query string, args ...any) rowScanner

// Resolver is a MySQL-backed catalog.Resolver.
type Resolver struct {
	queryRow queryRowFunc
	schema   string
}

// NewResolver opens a connection and returns the Resolver plus a Close
// function for cleanup.
func NewResolver(ctx context.Context, cfg Config) (*Resolver, func(), error) {
	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	closeFn := func() { _ = db.Close() }
	return &Resolver{
		queryRow: func(ctx context.Context, query string, args ...any) rowScanner {
			return db.QueryRowContext(ctx, query, args...)
		},
		schema: cfg.Schema,
	}, closeFn, nil
}

// ColumnSize implements catalog.Resolver. table may be "db.table".
func (r *Resolver) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	schema, name := catalog.SplitTable(table, r.schema)

	var size int64
	err := r.queryRow(ctx, columnSizeSQL, schema, name, column).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("mysql: column size %s.%s: %w", table, column, err)
	}
	return int(size), true, nil
}
