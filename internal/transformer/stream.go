package transformer

import (
	"context"
	"io"
)

// RowSource is the pull side of a step. Pull blocks until a row is available,
// the stream ends (io.EOF) or ctx is done (ctx.Err()).
type RowSource interface {
	Pull(ctx context.Context) (*Row, error)
}

// RowSink receives rows that passed the step. Ownership of row moves to the
// sink.
type RowSink interface {
	PutRow(ctx context.Context, row *Row) error
}

// ErrorSink is the host's error-row stream. It receives the untouched row
// with the number of failing fields, a free-text description, the
// comma-joined failing field names and an error code.
type ErrorSink interface {
	PutError(ctx context.Context, row *Row, nErrors int, description, fields, code string) error
}

// SourceFunc adapts a function to RowSource.
type SourceFunc func(ctx context.Context) (*Row, error)

func (f SourceFunc) Pull(ctx context.Context) (*Row, error) { return f(ctx) }

// SinkFunc adapts a function to RowSink.
type SinkFunc func(ctx context.Context, row *Row) error

func (f SinkFunc) PutRow(ctx context.Context, row *Row) error { return f(ctx, row) }

// ChanSource exposes a bounded channel as a RowSource. A closed channel is the
// end-of-stream signal.
type ChanSource struct {
	C <-chan *Row
}

// NewChanSource wraps ch.
func NewChanSource(ch <-chan *Row) *ChanSource { return &ChanSource{C: ch} }

// Pull implements RowSource.
func (s *ChanSource) Pull(ctx context.Context) (*Row, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r, ok := <-s.C:
		if !ok {
			return nil, io.EOF
		}
		return r, nil
	}
}
