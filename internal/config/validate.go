// This file adds a lightweight linter for Pipeline values. It performs static
// checks over a decoded Pipeline and returns the issues (errors and warnings)
// for the CLI to surface.

package config

import (
	"fmt"
	"net/url"
	"strings"

	"fieldsize/internal/transformer"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single finding. Path is a dotted path into the config
// (e.g. "catalog.kind", "step.fields[1].trim").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be returned as one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline lints p without mutating it.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateCatalog(p.Catalog)...)
	issues = append(issues, validateStep(p.Step)...)
	issues = append(issues, validateSinks(p.Sinks, p.Step)...)
	issues = append(issues, validateMetrics(p.Metrics)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{SeverityError, "source.kind", "source.kind must not be empty"})
	}
	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{SeverityError, "source.file.path", "file source requires a non-empty path"})
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{SeverityError, "source.http.url", fmt.Sprintf("http source requires an absolute http(s) url, got %q", s.HTTP.URL)})
		}
		if s.HTTP.MaxRetries < 0 {
			issues = append(issues, Issue{SeverityError, "source.http.max_retries", "must be >= 0"})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{SeverityWarning, "source.http.insecure_skip_verify", "TLS certificate verification is disabled"})
		}
	default:
		return append(issues, Issue{SeverityError, "source.kind", fmt.Sprintf("unsupported source kind %q (want file or http)", s.Kind)})
	}
	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		return append(issues, Issue{SeverityError, "parser.kind", "parser.kind must not be empty"})
	}
	if p.Kind != "csv" {
		return append(issues, Issue{SeverityError, "parser.kind", fmt.Sprintf("unsupported parser kind %q (want csv)", p.Kind)})
	}
	if !p.Options.Bool("has_header", true) && len(p.Options.StringMap("header_map")) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.options.has_header",
			Message:  "csv without header: fields are named col1..colN",
		})
	}
	if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
		issues = append(issues, Issue{SeverityError, "parser.options.comma", fmt.Sprintf("comma must be a single character, got %q", c)})
	}
	return issues
}

func validateCatalog(c Catalog) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Kind) == "" {
		issues = append(issues, Issue{SeverityError, "catalog.kind", "catalog.kind must not be empty"})
	} else {
		known := map[string]struct{}{"postgres": {}, "mssql": {}, "mysql": {}, "sqlite": {}}
		if _, ok := known[c.Kind]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "catalog.kind",
				Message:  fmt.Sprintf("unknown catalog kind %q; ensure a matching backend is registered", c.Kind),
			})
		}
	}
	if strings.TrimSpace(c.DSN) == "" {
		issues = append(issues, Issue{SeverityError, "catalog.dsn", "catalog.dsn must not be empty"})
	}
	if c.CacheSize < 0 {
		issues = append(issues, Issue{SeverityError, "catalog.cache_size", "cache_size must not be negative"})
	}
	if _, err := transformer.ParseMissingPolicy(c.MissingColumn); err != nil {
		issues = append(issues, Issue{SeverityError, "catalog.missing_column", err.Error()})
	}
	return issues
}

func validateStep(s Step) []Issue {
	var issues []Issue

	resize := false
	switch s.Kind {
	case "check", "StringCheckDynamic":
	case "resize", "StringResizeDynamic":
		resize = true
	case "":
		issues = append(issues, Issue{SeverityError, "step.kind", "step.kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, "step.kind", fmt.Sprintf("unknown step kind %q (want check|resize)", s.Kind)})
	}

	if resize && s.ErrorHandling {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "step.error_handling",
			Message:  "resize has no error path; error_handling is ignored",
		})
	}

	if len(s.Fields) == 0 {
		return append(issues, Issue{SeverityError, "step.fields", "at least one field policy is required"})
	}

	seen := make(map[string]int, len(s.Fields))
	for i, f := range s.Fields {
		path := fmt.Sprintf("step.fields[%d]", i)
		if f.Field == "" {
			issues = append(issues, Issue{SeverityError, path + ".field", "field must not be empty"})
		} else if prev, dup := seen[f.Field]; dup {
			issues = append(issues, Issue{SeverityError, path + ".field", fmt.Sprintf("field %q already configured at step.fields[%d]", f.Field, prev)})
		} else {
			seen[f.Field] = i
		}
		if strings.TrimSpace(f.Table) == "" {
			issues = append(issues, Issue{SeverityError, path + ".table", "table must not be empty"})
		}
		if strings.TrimSpace(f.Column) == "" {
			issues = append(issues, Issue{SeverityError, path + ".column", "column must not be empty"})
		}
		trim, err := transformer.ParseTrimMode(f.Trim)
		if err != nil {
			issues = append(issues, Issue{SeverityError, path + ".trim", err.Error()})
			continue
		}
		if resize && (trim == transformer.TrimLeft || trim == transformer.TrimRight) {
			issues = append(issues, Issue{SeverityError, path + ".trim", fmt.Sprintf("resize accepts trim none or both, got %s", trim)})
		}
	}
	return issues
}

func validateSinks(s Sinks, step Step) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Output) == "" {
		issues = append(issues, Issue{SeverityError, "sinks.output", "sinks.output must not be empty (use - for stdout)"})
	}
	check := step.Kind == "check" || step.Kind == "StringCheckDynamic"
	switch {
	case check && step.ErrorHandling && strings.TrimSpace(s.Errors) == "":
		issues = append(issues, Issue{SeverityError, "sinks.errors", "error_handling is on but no error stream is configured"})
	case !step.ErrorHandling && s.Errors != "":
		issues = append(issues, Issue{SeverityWarning, "sinks.errors", "error stream configured but step.error_handling is off; it stays empty"})
	}
	if s.Output != "" && s.Output != "-" && s.Output == s.Errors {
		issues = append(issues, Issue{SeverityError, "sinks.errors", "output and error stream must be different files"})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus", "prom", "pushgateway":
		if m.PushgatewayURL == "" {
			issues = append(issues, Issue{SeverityError, "metrics.pushgateway_url", "prometheus backend requires pushgateway_url"})
		}
	case "datadog", "dogstatsd":
		if m.DatadogAddr == "" {
			issues = append(issues, Issue{SeverityError, "metrics.datadog_addr", "datadog backend requires datadog_addr"})
		}
	default:
		issues = append(issues, Issue{SeverityWarning, "metrics.backend", fmt.Sprintf("unknown metrics backend %q; metrics are disabled", m.Backend)})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.Copies < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.copies", "copies must not be negative"})
	} else if r.Copies == 0 {
		issues = append(issues, Issue{SeverityWarning, "runtime.copies", "copies=0; one copy will run"})
	}
	if r.ChannelBuffer < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.channel_buffer", "channel_buffer must not be negative"})
	}
	return issues
}
