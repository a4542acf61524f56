package postgres

import (
	"context"
	"errors"
	"testing"

	"fieldsize/internal/catalog"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow implements pgx.Row for one information_schema.columns row.
type fakeRow struct {
	dataType string
	charLen  *int64
	prec     *int64
	radix    *int64
	err      error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.dataType
	*dest[1].(**int64) = r.charLen
	*dest[2].(**int64) = r.prec
	*dest[3].(**int64) = r.radix
	return nil
}

func i64(v int64) *int64 { return &v }

func varchar(n int64) fakeRow { return fakeRow{dataType: "character varying", charLen: i64(n)} }

type fakeQuerier struct {
	row  fakeRow
	sql  string
	args []any
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

// TestColumnSize covers found, unbounded, not found and access failures.
func TestColumnSize(t *testing.T) {
	t.Parallel()

	boom := errors.New("conn closed")
	tests := []struct {
		name      string
		table     string
		row       fakeRow
		wantSize  int
		wantFound bool
		wantErr   error
		wantArgs  []any
	}{
		{"varchar", "customers", varchar(40), 40, true, nil, []any{"sales", "customers", "name"}},
		{"qualified table", "public.customers", varchar(12), 12, true, nil, []any{"public", "customers", "name"}},
		{"text is unbounded", "customers", fakeRow{dataType: "text"}, -1, true, nil, []any{"sales", "customers", "name"}},
		{"integer in decimal digits", "customers", fakeRow{dataType: "integer", prec: i64(32), radix: i64(2)}, 10, true, nil, []any{"sales", "customers", "name"}},
		{"no such column", "customers", fakeRow{err: pgx.ErrNoRows}, 0, false, nil, []any{"sales", "customers", "name"}},
		{"access failure", "customers", fakeRow{err: boom}, 0, false, boom, []any{"sales", "customers", "name"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			q := &fakeQuerier{row: tc.row}
			r := &Resolver{q: q, schema: "sales"}
			size, found, err := r.ColumnSize(context.Background(), tc.table, "name")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSize, size)
			assert.Equal(t, tc.wantFound, found)
			assert.Equal(t, tc.wantArgs, q.args)
			assert.Contains(t, q.sql, "information_schema.columns")
		})
	}
}

// TestColumnSize_Numeric checks binary precisions are reported in decimal
// digits like the other backends.
func TestColumnSize_Numeric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataType string
		prec     *int64
		radix    *int64
		want     int
	}{
		{"smallint", i64(16), i64(2), 5},
		{"integer", i64(32), i64(2), 10},
		{"bigint", i64(64), i64(2), 19},
		{"real", i64(24), i64(2), 8},
		{"double precision", i64(53), i64(2), 17},
		{"numeric", i64(12), i64(10), 12},
		{"numeric", nil, i64(10), -1},
		{"mystery", i64(32), i64(2), 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, columnSize(tc.dataType, nil, tc.prec, tc.radix), tc.dataType)
	}
	assert.Equal(t, 7, columnSize("character", i64(7), nil, nil))
}

// TestRegistrationUsesNewResolverHook verifies that the "postgres" kind
// goes through the hook and that Close reaches the pool closer.
func TestRegistrationUsesNewResolverHook(t *testing.T) {
	orig := newResolver
	defer func() { newResolver = orig }()

	var (
		gotCfg Config
		closed bool
		fake   = &Resolver{q: &fakeQuerier{row: varchar(8)}}
	)
	newResolver = func(ctx context.Context, cfg Config) (*Resolver, func(), error) {
		gotCfg = cfg
		return fake, func() { closed = true }, nil
	}

	r, err := catalog.New(context.Background(), catalog.Config{Kind: "postgres", DSN: "postgres://x", Schema: "public"})
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: "postgres://x", Schema: "public"}, gotCfg)

	size, found, err := r.ColumnSize(context.Background(), "t", "c")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 8, size)

	require.NoError(t, r.Close())
	assert.True(t, closed)
}

func TestRegistrationPropagatesOpenError(t *testing.T) {
	orig := newResolver
	defer func() { newResolver = orig }()

	boom := errors.New("dial tcp: refused")
	newResolver = func(ctx context.Context, cfg Config) (*Resolver, func(), error) { return nil, nil, boom }

	_, err := catalog.New(context.Background(), catalog.Config{Kind: "postgres"})
	require.ErrorIs(t, err, boom)
}
