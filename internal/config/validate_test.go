package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// validPipeline returns a pipeline that produces no issues.
func validPipeline() Pipeline {
	return Pipeline{
		Job:     "customers",
		Source:  Source{Kind: "file", File: SourceFile{Path: "in.csv"}},
		Parser:  Parser{Kind: "csv", Options: Options{"has_header": true}},
		Catalog: Catalog{Kind: "postgres", DSN: "postgres://db/crm", MissingColumn: "zero"},
		Step: Step{
			Kind:          "check",
			ErrorHandling: true,
			Fields: []Field{
				{Field: "name", Table: "customers", Column: "name", Trim: "both"},
				{Field: "city", Table: "customers", Column: "city"},
			},
		},
		Sinks:   Sinks{Output: "out.csv", Errors: "rejected.csv"},
		Runtime: RuntimeConfig{Copies: 1, ChannelBuffer: 16},
	}
}

// hasIssue reports whether issues contains one with the given severity and
// path.
func hasIssue(issues []Issue, sev IssueSeverity, path string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path {
			return true
		}
	}
	return false
}

func TestValidatePipeline_Valid(t *testing.T) {
	t.Parallel()

	issues := ValidatePipeline(validPipeline())
	assert.Empty(t, issues)
	assert.False(t, HasErrors(issues))
}

// TestValidatePipeline_Findings lists one mutation per finding.
func TestValidatePipeline_Findings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
	}{
		{"missing job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job"},
		{"unknown source", func(p *Pipeline) { p.Source.Kind = "s3" }, SeverityError, "source.kind"},
		{"missing path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path"},
		{"http without url", func(p *Pipeline) { p.Source.Kind = "http" }, SeverityError, "source.http.url"},
		{"http relative url", func(p *Pipeline) {
			p.Source.Kind, p.Source.HTTP.URL = "http", "/data/customers.csv"
		}, SeverityError, "source.http.url"},
		{"http negative retries", func(p *Pipeline) {
			p.Source.Kind, p.Source.HTTP.URL, p.Source.HTTP.MaxRetries = "http", "https://files.example.com/c.csv", -1
		}, SeverityError, "source.http.max_retries"},
		{"http insecure", func(p *Pipeline) {
			p.Source.Kind, p.Source.HTTP.URL, p.Source.HTTP.InsecureSkipVerify = "http", "https://files.example.com/c.csv", true
		}, SeverityWarning, "source.http.insecure_skip_verify"},
		{"unknown parser", func(p *Pipeline) { p.Parser.Kind = "xml" }, SeverityError, "parser.kind"},
		{"bad comma", func(p *Pipeline) { p.Parser.Options["comma"] = ";;" }, SeverityError, "parser.options.comma"},
		{"headerless csv", func(p *Pipeline) { p.Parser.Options["has_header"] = false }, SeverityWarning, "parser.options.has_header"},
		{"missing catalog kind", func(p *Pipeline) { p.Catalog.Kind = "" }, SeverityError, "catalog.kind"},
		{"unknown catalog kind", func(p *Pipeline) { p.Catalog.Kind = "oracle" }, SeverityWarning, "catalog.kind"},
		{"missing dsn", func(p *Pipeline) { p.Catalog.DSN = "" }, SeverityError, "catalog.dsn"},
		{"negative cache", func(p *Pipeline) { p.Catalog.CacheSize = -1 }, SeverityError, "catalog.cache_size"},
		{"bad missing policy", func(p *Pipeline) { p.Catalog.MissingColumn = "ignore" }, SeverityError, "catalog.missing_column"},
		{"missing step kind", func(p *Pipeline) { p.Step.Kind = "" }, SeverityError, "step.kind"},
		{"unknown step kind", func(p *Pipeline) { p.Step.Kind = "pad" }, SeverityError, "step.kind"},
		{"no fields", func(p *Pipeline) { p.Step.Fields = nil }, SeverityError, "step.fields"},
		{"empty field", func(p *Pipeline) { p.Step.Fields[0].Field = "" }, SeverityError, "step.fields[0].field"},
		{"duplicate field", func(p *Pipeline) { p.Step.Fields[1].Field = "name" }, SeverityError, "step.fields[1].field"},
		{"empty table", func(p *Pipeline) { p.Step.Fields[1].Table = "" }, SeverityError, "step.fields[1].table"},
		{"empty column", func(p *Pipeline) { p.Step.Fields[1].Column = "" }, SeverityError, "step.fields[1].column"},
		{"bad trim", func(p *Pipeline) { p.Step.Fields[0].Trim = "middle" }, SeverityError, "step.fields[0].trim"},
		{"resize left trim", func(p *Pipeline) {
			p.Step.Kind, p.Step.ErrorHandling, p.Sinks.Errors = "resize", false, ""
			p.Step.Fields[0].Trim = "left"
		}, SeverityError, "step.fields[0].trim"},
		{"resize error handling", func(p *Pipeline) { p.Step.Kind = "StringResizeDynamic" }, SeverityWarning, "step.error_handling"},
		{"no output", func(p *Pipeline) { p.Sinks.Output = "" }, SeverityError, "sinks.output"},
		{"error handling without stream", func(p *Pipeline) { p.Sinks.Errors = "" }, SeverityError, "sinks.errors"},
		{"stream without error handling", func(p *Pipeline) { p.Step.ErrorHandling = false }, SeverityWarning, "sinks.errors"},
		{"same file twice", func(p *Pipeline) { p.Sinks.Errors = "out.csv" }, SeverityError, "sinks.errors"},
		{"prometheus without url", func(p *Pipeline) { p.Metrics.Backend = "prometheus" }, SeverityError, "metrics.pushgateway_url"},
		{"datadog without addr", func(p *Pipeline) { p.Metrics.Backend = "datadog" }, SeverityError, "metrics.datadog_addr"},
		{"unknown metrics", func(p *Pipeline) { p.Metrics.Backend = "graphite" }, SeverityWarning, "metrics.backend"},
		{"negative copies", func(p *Pipeline) { p.Runtime.Copies = -2 }, SeverityError, "runtime.copies"},
		{"zero copies", func(p *Pipeline) { p.Runtime.Copies = 0 }, SeverityWarning, "runtime.copies"},
		{"negative buffer", func(p *Pipeline) { p.Runtime.ChannelBuffer = -1 }, SeverityError, "runtime.channel_buffer"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			assert.True(t, hasIssue(issues, tc.sev, tc.path), "want %s at %s, got %+v", tc.sev, tc.path, issues)
		})
	}
}

func TestIssue_Error(t *testing.T) {
	t.Parallel()

	iss := Issue{Severity: SeverityError, Path: "catalog.dsn", Message: "must not be empty"}
	assert.Equal(t, "error at catalog.dsn: must not be empty", iss.Error())
	assert.True(t, HasErrors([]Issue{{Severity: SeverityWarning}, iss}))
	assert.False(t, HasErrors([]Issue{{Severity: SeverityWarning}}))
}
