// Package csv streams CSV input into pooled *transformer.Row values. The
// header (or the width of the first record when there is none) defines the
// row Schema; values are passed through untouched so that trimming stays the
// job of the field size step.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"fieldsize/internal/config"
	"fieldsize/internal/transformer"
)

// Reader yields one pooled row per CSV record. It implements
// transformer.RowSource and is used by a single goroutine.
//
// Options (parser.options):
//   - has_header (bool; default true)
//   - comma (string; first rune used; default ',')
//   - lazy_quotes (bool; default false) → csv.Reader.LazyQuotes
//   - fields_per_record (int; 0=width of the first record, -1=variable, >0=enforce)
//   - header_map (object; source header → field name)
//   - fold_header (bool) strips diacritics from header names
//   - empty_as_null (bool) yields nil for empty cells
//   - skip_malformed (bool) reports unparsable records to onErr and goes on
type Reader struct {
	cr     *csv.Reader
	schema *transformer.Schema

	emptyAsNull bool
	skipBad     bool
	onErr       func(line int, err error)

	pending []string // first record of a headerless file
	pendLn  int

	rows    atomic.Int64
	skipped atomic.Int64
}

// NewReader reads the header from r and returns a Reader positioned on the
// first data record. onErr may be nil.
func NewReader(r io.Reader, opt config.Options, onErr func(line int, err error)) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = opt.Int("fields_per_record", 0)
	cr.ReuseRecord = true

	rd := &Reader{
		cr:          cr,
		emptyAsNull: opt.Bool("empty_as_null", false),
		skipBad:     opt.Bool("skip_malformed", false),
		onErr:       onErr,
	}

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: empty input, no header")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	var names []string
	if opt.Bool("has_header", true) {
		namer := newHeaderNamer(opt.StringMap("header_map"), opt.Bool("fold_header", false))
		names = namer.names(append([]string(nil), first...))
	} else {
		names = make([]string, len(first))
		for i := range names {
			names[i] = "col" + strconv.Itoa(i+1)
		}
		rd.pending = append([]string(nil), first...)
		rd.pendLn, _ = cr.FieldPos(0)
	}

	schema, err := transformer.NewSchema(names)
	if err != nil {
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	rd.schema = schema
	return rd, nil
}

// Schema returns the schema shared by every row of the stream.
func (rd *Reader) Schema() *transformer.Schema { return rd.schema }

// Rows returns the number of rows yielded so far.
func (rd *Reader) Rows() int64 { return rd.rows.Load() }

// Skipped returns the number of malformed records skipped.
func (rd *Reader) Skipped() int64 { return rd.skipped.Load() }

// Pull implements transformer.RowSource. It returns io.EOF at end of input.
func (rd *Reader) Pull(ctx context.Context) (*transformer.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rd.pending != nil {
		rec, line := rd.pending, rd.pendLn
		rd.pending = nil
		return rd.toRow(rec, line), nil
	}
	for {
		rec, err := rd.cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if err != nil {
			line := 0
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				line = perr.StartLine
			}
			if !rd.skipBad {
				return nil, fmt.Errorf("csv: line %d: %w", line, err)
			}
			rd.skipped.Add(1)
			if rd.onErr != nil {
				rd.onErr(line, err)
			}
			continue
		}
		line, _ := rd.cr.FieldPos(0)
		return rd.toRow(rec, line), nil
	}
}

// toRow copies rec into a pooled row of schema width. Missing trailing cells
// (fields_per_record=-1) are nil; extra cells are dropped.
func (rd *Reader) toRow(rec []string, line int) *transformer.Row {
	n := rd.schema.Len()
	row := transformer.GetRow(n)
	row.Schema = rd.schema
	row.Line = line
	for i := 0; i < n && i < len(rec); i++ {
		if rd.emptyAsNull && rec[i] == "" {
			continue
		}
		row.V[i] = rec[i]
	}
	rd.rows.Add(1)
	return row
}
