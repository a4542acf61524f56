package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldsize/internal/config"
)

// makeCSV builds a CSV document with encoding/csv so quoting is correct.
func makeCSV(delim rune, header []string, rows [][]string) string {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Comma = delim
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.String()
}

// pullAll drains rd and returns the values and line of every row.
func pullAll(t *testing.T, rd *Reader) ([][]any, []int) {
	t.Helper()
	var vals [][]any
	var lines []int
	for {
		row, err := rd.Pull(context.Background())
		if errors.Is(err, io.EOF) {
			return vals, lines
		}
		require.NoError(t, err)
		assert.Same(t, rd.Schema(), row.Schema)
		vals = append(vals, append([]any(nil), row.V...))
		lines = append(lines, row.Line)
		row.Free()
	}
}

func TestReader_HeaderDefinesSchema(t *testing.T) {
	t.Parallel()

	in := makeCSV(',', []string{"\uFEFFname", " City ", "Zip"}, [][]string{
		{"  Ada  ", "Oslo", ""},
		{"Grace", "New York", "10001"},
	})
	rd, err := NewReader(strings.NewReader(in), config.Options{}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "City", "Zip"}, rd.Schema().Names(), "BOM and edge spaces stripped, case kept")

	vals, lines := pullAll(t, rd)
	assert.Equal(t, [][]any{
		{"  Ada  ", "Oslo", ""},
		{"Grace", "New York", "10001"},
	}, vals, "values are not trimmed")
	assert.Equal(t, []int{2, 3}, lines)
	assert.EqualValues(t, 2, rd.Rows())
}

func TestReader_Options(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		opt       config.Options
		wantNames []string
		wantVals  [][]any
	}{
		{
			name:      "headerless names positions",
			in:        "a,b\nc,d\n",
			opt:       config.Options{"has_header": false},
			wantNames: []string{"col1", "col2"},
			wantVals:  [][]any{{"a", "b"}, {"c", "d"}},
		},
		{
			name:      "semicolon delimiter",
			in:        "name;city\nAda;Oslo\n",
			opt:       config.Options{"comma": ";"},
			wantNames: []string{"name", "city"},
			wantVals:  [][]any{{"Ada", "Oslo"}},
		},
		{
			name: "header map is case-insensitive on the source name",
			in:   "First Name,city\nAda,Oslo\n",
			opt: config.Options{"header_map": map[string]any{
				"first name": "first_name",
			}},
			wantNames: []string{"first_name", "city"},
			wantVals:  [][]any{{"Ada", "Oslo"}},
		},
		{
			name:      "fold header strips diacritics",
			in:        "Město,Příjmení\nPraha,Čapek\n",
			opt:       config.Options{"fold_header": true},
			wantNames: []string{"Mesto", "Prijmeni"},
			wantVals:  [][]any{{"Praha", "Čapek"}},
		},
		{
			name:      "empty as null",
			in:        "a,b\n,x\n",
			opt:       config.Options{"empty_as_null": true},
			wantNames: []string{"a", "b"},
			wantVals:  [][]any{{nil, "x"}},
		},
		{
			name:      "variable width pads and drops",
			in:        "a,b\n1\n1,2,3\n",
			opt:       config.Options{"fields_per_record": -1},
			wantNames: []string{"a", "b"},
			wantVals:  [][]any{{"1", nil}, {"1", "2"}},
		},
		{
			name:      "lazy quotes",
			in:        "a\nsay \"hi\" now\n",
			opt:       config.Options{"lazy_quotes": true},
			wantNames: []string{"a"},
			wantVals:  [][]any{{`say "hi" now`}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rd, err := NewReader(strings.NewReader(tc.in), tc.opt, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.wantNames, rd.Schema().Names())
			vals, _ := pullAll(t, rd)
			assert.Equal(t, tc.wantVals, vals)
		})
	}
}

func TestReader_HeaderErrors(t *testing.T) {
	t.Parallel()

	_, err := NewReader(strings.NewReader(""), config.Options{}, nil)
	require.ErrorContains(t, err, "empty input")

	_, err = NewReader(strings.NewReader("a,a\n1,2\n"), config.Options{}, nil)
	require.ErrorContains(t, err, "duplicate field")

	_, err = NewReader(strings.NewReader("\"a\n"), config.Options{}, nil)
	require.ErrorContains(t, err, "read header")
}

// TestReader_Malformed fails by default and skips with skip_malformed.
func TestReader_Malformed(t *testing.T) {
	t.Parallel()

	in := "h1,h2\nok1,ok2\nonly\nok3,ok4\n"

	rd, err := NewReader(strings.NewReader(in), config.Options{}, nil)
	require.NoError(t, err)
	_, err = rd.Pull(context.Background())
	require.NoError(t, err)
	_, err = rd.Pull(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")

	var badLines []int
	rd, err = NewReader(strings.NewReader(in), config.Options{"skip_malformed": true},
		func(line int, _ error) { badLines = append(badLines, line) })
	require.NoError(t, err)
	vals, lines := pullAll(t, rd)
	assert.Equal(t, [][]any{{"ok1", "ok2"}, {"ok3", "ok4"}}, vals)
	assert.Equal(t, []int{2, 4}, lines)
	assert.Equal(t, []int{3}, badLines)
	assert.EqualValues(t, 1, rd.Skipped())
}

func TestReader_PullCanceled(t *testing.T) {
	t.Parallel()

	rd, err := NewReader(strings.NewReader("a\n1\n"), config.Options{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rd.Pull(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
