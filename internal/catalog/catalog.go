// Package catalog resolves the declared size of database columns from the
// database's own catalog (information_schema, PRAGMA table_info, ...).
//
// It mirrors the storage factory pattern: backends live in subpackages and
// register a Factory for their kind at init time; callers only depend on the
// Resolver interface and obtain one through New. Importing
// fieldsize/internal/catalog/all enables every built-in backend.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrColumnNotFound is reported when the catalog has no entry for a
// (table, column) pair.
var ErrColumnNotFound = errors.New("column not found in catalog")

// Ref identifies one database column. Table may be schema-qualified
// ("public.customers") for backends that have schemas.
type Ref struct {
	Table  string
	Column string
}

func (r Ref) String() string { return r.Table + "." + r.Column }

// Sizes maps a column to its declared size. Only columns the catalog knows
// appear in the map. A negative size means the column is declared without a
// length limit (text, varchar(max), ...).
type Sizes map[Ref]int

// Resolver looks up declared column sizes.
//
// ColumnSize returns found=false with a nil error when the catalog has no
// such column; err is reserved for access failures (lost connection,
// permission denied, malformed query).
type Resolver interface {
	ColumnSize(ctx context.Context, table, column string) (size int, found bool, err error)
	Close() error
}

// LookupError ties a resolver failure to the column being looked up.
type LookupError struct {
	Ref Ref
	Err error
}

func (e *LookupError) Error() string { return fmt.Sprintf("lookup %s: %v", e.Ref, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// ResolveSizes looks up every ref once, in order, and stops at the first
// failure. There is no retry and no timeout beyond what ctx carries.
func ResolveSizes(ctx context.Context, r Resolver, refs []Ref) (Sizes, error) {
	if r == nil {
		return nil, fmt.Errorf("catalog: resolver is nil")
	}
	out := make(Sizes, len(refs))
	done := make(map[Ref]struct{}, len(refs))
	for _, ref := range refs {
		if _, ok := done[ref]; ok {
			continue
		}
		done[ref] = struct{}{}

		size, found, err := r.ColumnSize(ctx, ref.Table, ref.Column)
		if err != nil {
			return nil, &LookupError{Ref: ref, Err: err}
		}
		if found {
			out[ref] = size
		}
	}
	return out, nil
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name ("postgres", "mssql", "mysql", "sqlite").
	Kind string
	// DSN is passed to the backend driver unchanged.
	DSN string
	// Schema is the default schema for unqualified table names. Empty means the
	// backend's own default (search_path, dbo, DATABASE(), main).
	Schema string
}

// Factory opens a Resolver for cfg.
type Factory func(ctx context.Context, cfg Config) (Resolver, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[kind] = f
}

// New opens a Resolver using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Resolver, error) {
	regMu.RLock()
	f, ok := factories[cfg.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported catalog.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// SplitTable splits "schema.table" into its parts. When there is no dot,
// schema is def.
func SplitTable(name, def string) (schema, table string) {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return def, name
}
