// Package sink writes the two output streams of a run: the success stream
// with the input schema and, in check mode, the error stream with the input
// schema plus error columns. Both are CSV and safe for concurrent step
// copies.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"fieldsize/internal/transformer"
)

// Stdout is the path that selects standard output.
const Stdout = "-"

// Create opens path for writing, creating parent directories. "-" returns
// standard output wrapped so that Close leaves it open.
func Create(path string) (io.WriteCloser, error) {
	if path == Stdout {
		return nopWriteCloser{os.Stdout}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// table is the mutex-guarded CSV writer both sinks build on. The header is
// written once, either explicitly or from the first row's schema.
type table struct {
	mu      sync.Mutex
	w       *csv.Writer
	c       io.Closer
	extra   []string // columns appended after the row schema
	header  bool
	rows    int64
	scratch []string
}

func newTable(w io.Writer, comma rune, extra []string) *table {
	cw := csv.NewWriter(w)
	if comma != 0 {
		cw.Comma = comma
	}
	t := &table{w: cw, extra: extra}
	if c, ok := w.(io.Closer); ok {
		t.c = c
	}
	return t
}

func (t *table) writeHeaderLocked(names []string) error {
	if t.header {
		return nil
	}
	t.header = true
	return t.w.Write(append(append([]string(nil), names...), t.extra...))
}

func (t *table) writeHeader(names []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writeHeaderLocked(names)
}

// writeRow writes row followed by tail and frees row.
func (t *table) writeRow(row *transformer.Row, tail ...string) error {
	defer row.Free()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.writeHeaderLocked(row.Schema.Names()); err != nil {
		return err
	}
	t.scratch = t.scratch[:0]
	for _, v := range row.V {
		t.scratch = append(t.scratch, formatValue(v))
	}
	t.scratch = append(t.scratch, tail...)
	if err := t.w.Write(t.scratch); err != nil {
		return err
	}
	t.rows++
	return nil
}

func (t *table) count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows
}

func (t *table) close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Flush()
	err := t.w.Error()
	if t.c != nil {
		if cerr := t.c.Close(); err == nil {
			err = cerr
		}
		t.c = nil
	}
	return err
}

// formatValue renders a cell. Null is the empty string.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
