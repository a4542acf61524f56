// Package config defines the configuration model of a field size run. It is
// decoded from a JSON or YAML file (see Load) and passed read-only through
// the program.
//
// Example (trimmed):
//
//	{
//	  "job":     "customers",
//	  "source":  { "kind": "file", "file": { "path": "customers.csv" } },
//	  "parser":  { "kind": "csv", "options": { "has_header": true } },
//	  "catalog": { "kind": "postgres", "dsn": "postgres://...", "missing_column": "zero" },
//	  "step": {
//	    "kind": "check",
//	    "error_handling": true,
//	    "fields": [ { "field": "name", "table": "customers", "column": "name", "trim": "both" } ]
//	  },
//	  "sinks":   { "output": "out.csv", "errors": "rejected.csv" }
//	}
package config

import (
	"encoding/json"
	"time"
)

// Pipeline is the top-level object decoded from a run file.
type Pipeline struct {
	// Job names the run in logs and metrics.
	Job string `json:"job" mapstructure:"job"`

	Source  Source        `json:"source" mapstructure:"source"`
	Parser  Parser        `json:"parser" mapstructure:"parser"`
	Catalog Catalog       `json:"catalog" mapstructure:"catalog"`
	Step    Step          `json:"step" mapstructure:"step"`
	Sinks   Sinks         `json:"sinks" mapstructure:"sinks"`
	Metrics Metrics       `json:"metrics" mapstructure:"metrics"`
	Runtime RuntimeConfig `json:"runtime" mapstructure:"runtime"`
}

// RuntimeConfig controls step copies and channel buffer sizes.
type RuntimeConfig struct {
	// Copies is the number of step copies run in parallel. Rows are dealt to
	// copies round-robin.
	Copies        int `json:"copies" mapstructure:"copies"`
	ChannelBuffer int `json:"channel_buffer" mapstructure:"channel_buffer"`
}

// Source identifies the data source.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string     `json:"kind" mapstructure:"kind"`
	File SourceFile `json:"file" mapstructure:"file"`
	HTTP SourceHTTP `json:"http" mapstructure:"http"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	// Path is the local filesystem path to the input file.
	Path string `json:"path" mapstructure:"path"`
}

// SourceHTTP holds configuration for the "http" source kind. The body of a
// GET on URL is streamed into the parser.
type SourceHTTP struct {
	URL                string            `json:"url" mapstructure:"url"`
	Timeout            time.Duration     `json:"timeout" mapstructure:"timeout"`
	MaxRetries         int               `json:"max_retries" mapstructure:"max_retries"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
	Headers            map[string]string `json:"headers" mapstructure:"headers"`
}

// Parser selects how to parse the raw source into rows.
type Parser struct {
	// Kind selects the parser implementation. Current value: "csv".
	Kind string `json:"kind" mapstructure:"kind"`

	// Options is interpreted by the parser. For CSV:
	//   has_header (bool), comma (string), lazy_quotes (bool),
	//   fields_per_record (int), header_map (object), fold_header (bool),
	//   empty_as_null (bool)
	Options Options `json:"options" mapstructure:"options"`
}

// Catalog selects the database whose column metadata bounds the fields.
type Catalog struct {
	// Kind is a registered catalog backend: postgres, mssql, mysql, sqlite.
	Kind string `json:"kind" mapstructure:"kind"`
	DSN  string `json:"dsn" mapstructure:"dsn"`
	// Schema is the default schema for unqualified table names.
	Schema string `json:"schema" mapstructure:"schema"`

	// Shared makes all step copies use one serialized connection instead of
	// one connection each.
	Shared bool `json:"shared" mapstructure:"shared"`
	// CacheSize bounds the per-run metadata cache. 0 uses the default.
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`
	// MissingColumn is what to do when a referenced column does not exist:
	// "zero" (default), "unbounded" or "fail".
	MissingColumn string `json:"missing_column" mapstructure:"missing_column"`
}

// Step configures the field size step.
type Step struct {
	// Kind is "check" (StringCheckDynamic) or "resize" (StringResizeDynamic).
	Kind string `json:"kind" mapstructure:"kind"`
	// ErrorHandling routes violating rows to the error stream instead of
	// failing the run. Check only.
	ErrorHandling bool `json:"error_handling" mapstructure:"error_handling"`

	Fields []Field `json:"fields" mapstructure:"fields"`
}

// Field is one field policy.
type Field struct {
	Field  string `json:"field" mapstructure:"field"`
	Table  string `json:"table" mapstructure:"table"`
	Column string `json:"column" mapstructure:"column"`
	// Trim is none, left, right or both. Resize accepts none and both.
	Trim string `json:"trim" mapstructure:"trim"`
}

// Sinks names the output files. "-" writes to stdout.
type Sinks struct {
	Output string `json:"output" mapstructure:"output"`
	// Errors receives rows that failed the check when error handling is on.
	Errors string `json:"errors" mapstructure:"errors"`
}

// Metrics selects an optional metrics backend.
type Metrics struct {
	// Backend is "", "none", "prometheus" or "datadog".
	Backend        string   `json:"backend" mapstructure:"backend"`
	PushgatewayURL string   `json:"pushgateway_url" mapstructure:"pushgateway_url"`
	DatadogAddr    string   `json:"datadog_addr" mapstructure:"datadog_addr"`
	Namespace      string   `json:"namespace" mapstructure:"namespace"`
	Tags           []string `json:"tags" mapstructure:"tags"`
}

// Options is a small helper to fetch typed values from free-form maps. It
// performs only minimal type coercion and returns the provided default when
// a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// YAML numbers as int, so both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Used for single-character parser settings such as a CSV
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// Any returns the raw value for key.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to an empty,
// non-nil Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
