// Package datasource defines how a run obtains its raw input bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens the raw input of a run. The caller closes the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
