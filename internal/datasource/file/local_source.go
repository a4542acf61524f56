// Package file implements the local filesystem data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Local opens one file from the local disk, or standard input when the path
// is "-".
type Local struct {
	path  string
	stdin io.Reader
}

// NewLocal returns a Local bound to path.
func NewLocal(path string) *Local { return &Local{path: path, stdin: os.Stdin} }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open returns the file as an io.ReadCloser.
//
// A context that is already done short-circuits without touching the
// filesystem. Filesystem errors are wrapped with the path and still match
// errors.Is(err, os.ErrNotExist). Regular files are advised for sequential
// access; the hint is best effort.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if l.path == Stdin {
		return io.NopCloser(l.stdin), nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	adviseSequential(f)
	return f, nil
}
