package transformer

import (
	"fmt"
	"strings"
)

// ConfigurationError reports an unusable step configuration (no policies,
// duplicate fields, a trim mode the step variant does not accept). It is
// raised before any row is processed.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// SchemaMismatchError reports a configured field that is absent from the
// input row schema. It is detected once, on the first row.
type SchemaMismatchError struct {
	Field string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("field %q is not present in the incoming row schema", e.Field)
}

// MetadataResolutionError reports a failed column size lookup. Table and
// Column are empty when the failure is not tied to a single column (for
// example a lost connection).
type MetadataResolutionError struct {
	Table  string
	Column string
	Err    error
}

func (e *MetadataResolutionError) Error() string {
	if e.Table == "" && e.Column == "" {
		return fmt.Sprintf("resolve column metadata: %v", e.Err)
	}
	return fmt.Sprintf("resolve column metadata for %s.%s: %v", e.Table, e.Column, e.Err)
}

func (e *MetadataResolutionError) Unwrap() error { return e.Err }

// LengthViolationError is raised in check mode when a row violates and the
// step does not route rows to an error stream.
type LengthViolationError struct {
	Line      int
	Violation Violation
}

func (e *LengthViolationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "fields %s failed the string length check", e.Violation.FieldList())
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Violation.Description != "" {
		b.WriteString(": ")
		b.WriteString(e.Violation.Description)
	}
	return b.String()
}

// ProcessingError wraps any unexpected failure while a row is in flight:
// sink failures, recovered panics and cancellation.
type ProcessingError struct {
	Line int
	Err  error
}

func (e *ProcessingError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("processing line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("processing: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }
