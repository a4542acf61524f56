package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver answers from a fixed map and records every lookup.
type fakeResolver struct {
	mu     sync.Mutex
	sizes  map[Ref]int
	failOn map[Ref]error
	calls  []Ref
	closed int
}

func (f *fakeResolver) ColumnSize(_ context.Context, table, column string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := Ref{Table: table, Column: column}
	f.calls = append(f.calls, ref)
	if err, ok := f.failOn[ref]; ok {
		return 0, false, err
	}
	size, ok := f.sizes[ref]
	return size, ok, nil
}

func (f *fakeResolver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// TestResolveSizes_FoundMissingAndDuplicates verifies that found columns are
// returned, missing ones are omitted and repeated refs are looked up once.
func TestResolveSizes_FoundMissingAndDuplicates(t *testing.T) {
	t.Parallel()

	f := &fakeResolver{sizes: map[Ref]int{
		{Table: "customers", Column: "name"}: 40,
		{Table: "customers", Column: "city"}: 20,
	}}
	refs := []Ref{
		{Table: "customers", Column: "name"},
		{Table: "customers", Column: "city"},
		{Table: "customers", Column: "name"},
		{Table: "customers", Column: "nope"},
	}

	got, err := ResolveSizes(context.Background(), f, refs)
	require.NoError(t, err)
	assert.Equal(t, Sizes{
		{Table: "customers", Column: "name"}: 40,
		{Table: "customers", Column: "city"}: 20,
	}, got)
	assert.Len(t, f.calls, 3)
}

// TestResolveSizes_FailsFast checks that the first access failure aborts the
// whole resolution and names the column.
func TestResolveSizes_FailsFast(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	f := &fakeResolver{
		sizes:  map[Ref]int{{Table: "t", Column: "b"}: 3},
		failOn: map[Ref]error{{Table: "t", Column: "a"}: boom},
	}

	_, err := ResolveSizes(context.Background(), f, []Ref{{Table: "t", Column: "a"}, {Table: "t", Column: "b"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, Ref{Table: "t", Column: "a"}, le.Ref)
	assert.Len(t, f.calls, 1)
}

func TestResolveSizes_NilResolver(t *testing.T) {
	t.Parallel()

	_, err := ResolveSizes(context.Background(), nil, nil)
	require.Error(t, err)
}

// TestRegisterAndNew verifies the factory registry round trip and the error
// for unknown kinds.
func TestRegisterAndNew(t *testing.T) {
	t.Parallel()

	Register("fake-catalog", func(ctx context.Context, cfg Config) (Resolver, error) {
		return &fakeResolver{}, nil
	})

	r, err := New(context.Background(), Config{Kind: "fake-catalog"})
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Contains(t, ListKinds(), "fake-catalog")

	_, err = New(context.Background(), Config{Kind: "does-not-exist"})
	require.EqualError(t, err, "unsupported catalog.kind=does-not-exist")
}

// TestListKinds_Snapshot checks that callers get a copy of the registry keys.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap-catalog", func(ctx context.Context, cfg Config) (Resolver, error) { return &fakeResolver{}, nil })

	a := ListKinds()
	require.NotEmpty(t, a)
	a[0] = "mutated"
	assert.NotContains(t, ListKinds(), "mutated")
}

func TestSplitTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, def      string
		schema, name string
	}{
		{"customers", "public", "public", "customers"},
		{"sales.customers", "public", "sales", "customers"},
		{"db.sales.customers", "", "db.sales", "customers"},
		{"customers", "", "", "customers"},
	}
	for _, tc := range tests {
		s, n := SplitTable(tc.in, tc.def)
		assert.Equal(t, tc.schema, s, tc.in)
		assert.Equal(t, tc.name, n, tc.in)
	}
}
