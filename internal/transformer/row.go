// Package transformer provides the streaming, row-at-a-time field size stages.
// This file defines the pooled Row type and the Schema shared by every row of
// one input stream, used across reader → processor → sinks to keep heap churn
// low on large inputs.
package transformer

import (
	"fmt"
	"sync"
)

// Row is a pooled container holding one positional row.
//
// Contract:
//   - The owner stage writes into r.V[0:len(schema)] (no re-slice growth).
//   - Once a row has been handed to a sink, ownership moves with it; the
//     sink calls r.Free() when it no longer needs the values.
//   - Do not retain references to r or r.V beyond the owning stage.
type Row struct {
	V    []any
	Line int // 1-based source line, 0 when unknown

	// Schema describes V. All rows of one stream share the same *Schema.
	Schema *Schema
}

var rowPool sync.Pool

// GetRow returns a pooled Row with length set to colCount. All elements are
// zeroed.
func GetRow(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.V) < colCount {
			r.V = make([]any, colCount)
		}
		r.V = r.V[:colCount]
		for i := range r.V {
			r.V[i] = nil
		}
		r.Line = 0
		r.Schema = nil
		return r
	}
	return &Row{V: make([]any, colCount)}
}

// Free returns the Row to the pool. The caller must not use r after Free().
func (r *Row) Free() {
	if r == nil {
		return
	}
	r.Schema = nil
	rowPool.Put(r)
}

// Schema maps field names to positions for one input stream. Names are
// matched case-sensitively.
type Schema struct {
	names []string
	pos   map[string]int
}

// NewSchema builds a Schema from the positional field names. Duplicate names
// are rejected because lookups by name would be ambiguous.
func NewSchema(names []string) (*Schema, error) {
	s := &Schema{
		names: append([]string(nil), names...),
		pos:   make(map[string]int, len(names)),
	}
	for i, n := range names {
		if _, dup := s.pos[n]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", n)
		}
		s.pos[n] = i
	}
	return s, nil
}

// IndexOf returns the position of name, or -1 when the field is absent.
func (s *Schema) IndexOf(name string) int {
	if s == nil {
		return -1
	}
	if ix, ok := s.pos[name]; ok {
		return ix
	}
	return -1
}

// Names returns a copy of the positional field names.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}
