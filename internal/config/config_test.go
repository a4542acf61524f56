package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "job": "customers",
  "source": { "kind": "file", "file": { "path": "customers.csv" } },
  "parser": { "kind": "csv", "options": { "has_header": true, "comma": ";", "fields_per_record": 3 } },
  "catalog": { "kind": "postgres", "dsn": "postgres://u@db/crm", "schema": "sales", "shared": true, "missing_column": "fail" },
  "step": {
    "kind": "check",
    "error_handling": true,
    "fields": [
      { "field": "name", "table": "customers", "column": "name", "trim": "both" },
      { "field": "City", "table": "customers", "column": "city" }
    ]
  },
  "sinks": { "output": "out.csv", "errors": "rejected.csv" },
  "runtime": { "copies": 4 }
}`

const sampleYAML = `job: customers
source:
  kind: file
  file:
    path: customers.csv
catalog:
  kind: sqlite
  dsn: catalog.db
step:
  kind: resize
  fields:
    - field: Name
      table: customers
      column: name
      trim: both
parser:
  options:
    fields_per_record: 2
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// TestPipeline_DecodeJSON checks the struct graph matches the JSON shape.
func TestPipeline_DecodeJSON(t *testing.T) {
	t.Parallel()

	var p Pipeline
	require.NoError(t, json.Unmarshal([]byte(sampleJSON), &p))

	assert.Equal(t, "customers", p.Job)
	assert.Equal(t, "customers.csv", p.Source.File.Path)
	assert.Equal(t, ';', p.Parser.Options.Rune("comma", ','))
	assert.Equal(t, 3, p.Parser.Options.Int("fields_per_record", 0))
	assert.Equal(t, Catalog{Kind: "postgres", DSN: "postgres://u@db/crm", Schema: "sales", Shared: true, MissingColumn: "fail"}, p.Catalog)
	require.Len(t, p.Step.Fields, 2)
	assert.Equal(t, Field{Field: "City", Table: "customers", Column: "city"}, p.Step.Fields[1])
	assert.Equal(t, 4, p.Runtime.Copies)
}

// TestLoad_JSON goes through viper and applies defaults for unset keys.
func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	p, err := Load(writeFile(t, "run.json", sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "customers", p.Job)
	assert.Equal(t, "postgres", p.Catalog.Kind)
	assert.True(t, p.Catalog.Shared)
	assert.Equal(t, DefaultCacheSize, p.Catalog.CacheSize)
	assert.Equal(t, 4, p.Runtime.Copies)
	assert.Equal(t, DefaultChannelBuffer, p.Runtime.ChannelBuffer)
	assert.Equal(t, "both", p.Step.Fields[0].Trim)
	assert.Equal(t, "City", p.Step.Fields[1].Field, "values keep their case")
	assert.Equal(t, 3, p.Parser.Options.Int("fields_per_record", 0))
}

// TestLoad_YAML picks the format by extension.
func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	p, err := Load(writeFile(t, "run.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", p.Catalog.Kind)
	assert.Equal(t, "resize", p.Step.Kind)
	assert.Equal(t, "Name", p.Step.Fields[0].Field)
	assert.Equal(t, "csv", p.Parser.Kind, "default parser kind")
	assert.Equal(t, "file", p.Source.Kind)
	assert.Equal(t, "zero", p.Catalog.MissingColumn)
	assert.Equal(t, "-", p.Sinks.Output)
	assert.Equal(t, 2, p.Parser.Options.Int("fields_per_record", 0))
	assert.Empty(t, ValidatePipeline(p))
}

// TestLoad_HTTPSource decodes the duration and applies the retry default.
func TestLoad_HTTPSource(t *testing.T) {
	t.Parallel()

	body := `job: customers
source:
  kind: http
  http:
    url: https://files.example.com/customers.csv
    timeout: 5s
    headers:
      Authorization: Bearer token
catalog:
  kind: sqlite
  dsn: catalog.db
step:
  kind: check
  fields:
    - field: name
      table: customers
      column: name
`
	p, err := Load(writeFile(t, "run.yaml", body))
	require.NoError(t, err)

	assert.Equal(t, "http", p.Source.Kind)
	assert.Equal(t, "https://files.example.com/customers.csv", p.Source.HTTP.URL)
	assert.Equal(t, 5*time.Second, p.Source.HTTP.Timeout)
	assert.Equal(t, 3, p.Source.HTTP.MaxRetries)
	assert.Equal(t, "Bearer token", p.Source.HTTP.Headers["authorization"], "viper lower-cases map keys")
	assert.Empty(t, ValidatePipeline(p))
}

// TestLoad_EnvOverride: FIELDSIZE_CATALOG_DSN wins over the file.
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIELDSIZE_CATALOG_DSN", "postgres://override/crm")
	t.Setenv("FIELDSIZE_RUNTIME_COPIES", "2")

	p, err := Load(writeFile(t, "run.json", sampleJSON))
	require.NoError(t, err)
	assert.Equal(t, "postgres://override/crm", p.Catalog.DSN)
	assert.Equal(t, 2, p.Runtime.Copies)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.json", `{"job": `))
	require.Error(t, err)
}

// TestOptions_Helpers covers defaults and the tolerated number types.
func TestOptions_Helpers(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":   "x",
		"b":   true,
		"f":   float64(3),
		"i":   7,
		"i64": int64(9),
		"m":   map[string]any{"A": "a", "n": 1},
	}
	assert.Equal(t, "x", o.String("s", "d"))
	assert.Equal(t, "d", o.String("b", "d"))
	assert.True(t, o.Bool("b", false))
	assert.False(t, o.Bool("missing", false))
	assert.Equal(t, 3, o.Int("f", 0))
	assert.Equal(t, 7, o.Int("i", 0))
	assert.Equal(t, 9, o.Int("i64", 0))
	assert.Equal(t, 5, o.Int("s", 5))
	assert.Equal(t, 'x', o.Rune("s", ','))
	assert.Equal(t, ',', o.Rune("missing", ','))
	assert.Equal(t, map[string]string{"A": "a"}, o.StringMap("m"))
	assert.Empty(t, o.StringMap("missing"))
	assert.Nil(t, o.Any("missing"))
}

func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	var p Parser
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"csv","options":null}`), &p))
	assert.NotNil(t, p.Options)
	assert.Empty(t, p.Options)
}
