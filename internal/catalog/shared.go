package catalog

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by a shared handle used after the last reference to
// the underlying resolver was released.
var ErrClosed = errors.New("catalog: resolver closed")

// OpenFunc opens the resolver a Shared hands out.
type OpenFunc func(ctx context.Context) (Resolver, error)

// Shared lets the copies of one run use a single connection. Opening and
// every lookup run inside one mutex, so the underlying handle is never used
// concurrently. The connection closes when the last handle is closed.
type Shared struct {
	mu   sync.Mutex
	open OpenFunc
	r    Resolver
	refs int
}

// NewShared returns a Shared that opens its resolver lazily with open.
func NewShared(open OpenFunc) *Shared { return &Shared{open: open} }

// Acquire returns a handle on the shared resolver, opening it on first use.
func (s *Shared) Acquire(ctx context.Context) (Resolver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.r == nil {
		r, err := s.open(ctx)
		if err != nil {
			return nil, err
		}
		s.r = r
	}
	s.refs++
	return &sharedHandle{s: s}, nil
}

// Refs returns the number of open handles.
func (s *Shared) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

type sharedHandle struct {
	s    *Shared
	once sync.Once
}

func (h *sharedHandle) ColumnSize(ctx context.Context, table, column string) (int, bool, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.r == nil {
		return 0, false, ErrClosed
	}
	return h.s.r.ColumnSize(ctx, table, column)
}

func (h *sharedHandle) Close() error {
	var err error
	h.once.Do(func() {
		h.s.mu.Lock()
		defer h.s.mu.Unlock()
		h.s.refs--
		if h.s.refs == 0 && h.s.r != nil {
			err = h.s.r.Close()
			h.s.r = nil
		}
	})
	return err
}
