package sink

import (
	"context"
	"io"

	"fieldsize/internal/transformer"
)

// CSVWriter is the success stream. It implements transformer.RowSink.
type CSVWriter struct{ t *table }

// NewCSVWriter writes rows to w. If w is an io.Closer, Close closes it.
func NewCSVWriter(w io.Writer, comma rune) *CSVWriter {
	return &CSVWriter{t: newTable(w, comma, nil)}
}

// WriteHeader writes the header now so that an empty stream still has one.
func (s *CSVWriter) WriteHeader(schema *transformer.Schema) error {
	return s.t.writeHeader(schema.Names())
}

// PutRow implements transformer.RowSink. The row is freed.
func (s *CSVWriter) PutRow(_ context.Context, row *transformer.Row) error {
	return s.t.writeRow(row)
}

// Rows returns the number of rows written.
func (s *CSVWriter) Rows() int64 { return s.t.count() }

// Close flushes and closes the underlying writer.
func (s *CSVWriter) Close() error { return s.t.close() }

// Error stream columns appended after the input schema.
const (
	ColErrorCount       = "error_count"
	ColErrorDescription = "error_description"
	ColErrorFields      = "error_fields"
	ColErrorCode        = "error_code"
)

// CSVErrorWriter is the error stream. It implements transformer.ErrorSink.
type CSVErrorWriter struct{ t *table }

// NewCSVErrorWriter writes rejected rows to w.
func NewCSVErrorWriter(w io.Writer, comma rune) *CSVErrorWriter {
	return &CSVErrorWriter{t: newTable(w, comma, []string{
		ColErrorCount, ColErrorDescription, ColErrorFields, ColErrorCode,
	})}
}

// WriteHeader writes the header now so that an empty stream still has one.
func (s *CSVErrorWriter) WriteHeader(schema *transformer.Schema) error {
	return s.t.writeHeader(schema.Names())
}

// PutError implements transformer.ErrorSink. The row is written untouched
// and freed.
func (s *CSVErrorWriter) PutError(_ context.Context, row *transformer.Row, nErrors int, description, fields, code string) error {
	return s.t.writeRow(row, formatValue(nErrors), description, fields, code)
}

// Rows returns the number of rejected rows written.
func (s *CSVErrorWriter) Rows() int64 { return s.t.count() }

// Close flushes and closes the underlying writer.
func (s *CSVErrorWriter) Close() error { return s.t.close() }
