// Package postgres resolves declared column sizes from a PostgreSQL
// information_schema using pgx v5.
//
// Character columns report character_maximum_length. Numeric columns report
// their precision in decimal digits: numeric(p,s) gives p, and the binary
// types get the digit counts JDBC reports (smallint 5, integer 10, bigint 19,
// real 8, double precision 17). Everything else (text, bytea, unconstrained
// numeric) is unbounded, reported as -1.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"fieldsize/internal/catalog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columnSizeSQL = `SELECT data_type, character_maximum_length, numeric_precision, numeric_precision_radix
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1::text, ''), current_schema())
  AND table_name = $2::text
  AND column_name = $3::text`

// binaryDigits maps the radix-2 numeric types to their decimal digit count.
var binaryDigits = map[string]int{
	"smallint":         5,
	"integer":          10,
	"bigint":           19,
	"real":             8,
	"double precision": 17,
}

// columnSize turns one information_schema row into a size.
func columnSize(dataType string, charLen, precision, radix *int64) int {
	switch {
	case charLen != nil:
		return int(*charLen)
	case precision == nil:
		return -1
	case radix != nil && *radix == 2:
		if d, ok := binaryDigits[dataType]; ok {
			return d
		}
		// unknown binary type: ceil(bits * log10(2))
		return int((*precision*30103 + 99999) / 100000)
	default:
		return int(*precision)
	}
}

// Config holds Postgres resolver configuration.
type Config struct {
	DSN string // connection string for pgxpool
	// Schema is used for unqualified table names. Empty means current_schema().
	Schema string
}

// rowQuerier is the part of *pgxpool.Pool the resolver needs.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Resolver is a Postgres-backed catalog.Resolver.
type Resolver struct {
	q      rowQuerier
	schema string
}

// NewResolver opens a pool and returns the Resolver plus a Close function.
func NewResolver(ctx context.Context, cfg Config) (*Resolver, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Resolver{q: pool, schema: cfg.Schema}, pool.Close, nil
}

// ColumnSize implements catalog.Resolver. table may be "schema.table".
func (r *Resolver) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	schema, name := catalog.SplitTable(table, r.schema)

	var (
		dataType                  string
		charLen, precision, radix *int64
	)
	err := r.q.QueryRow(ctx, columnSizeSQL, schema, name, column).Scan(&dataType, &charLen, &precision, &radix)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("postgres: column size %s.%s: %w", table, column, err)
	}
	return columnSize(dataType, charLen, precision, radix), true, nil
}
