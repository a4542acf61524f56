package mysql

import (
	"context"

	"fieldsize/internal/catalog"
)

// newResolver is a test hook that points to NewResolver by default.
// Tests may replace this variable to avoid real DB connections.
var newResolver = NewResolver

var _ catalog.Resolver = (*wrappedResolver)(nil)

// init registers the "mysql" backend with the factory.
func init() {
	catalog.Register("mysql", func(ctx context.Context, cfg catalog.Config) (catalog.Resolver, error) {
		r, closeFn, err := newResolver(ctx, Config{DSN: cfg.DSN, Schema: cfg.Schema})
		if err != nil {
			return nil, err
		}
		return &wrappedResolver{Resolver: r, closeFn: closeFn}, nil
	})
}

// wrappedResolver adds Close to *Resolver.
type wrappedResolver struct {
	*Resolver
	closeFn func()
}

// Close closes the underlying connection pool.
func (w *wrappedResolver) Close() error {
	w.closeFn()
	return nil
}
