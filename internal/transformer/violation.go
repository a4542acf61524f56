package transformer

import (
	"fmt"
	"strings"
)

// Violation aggregates the check-mode failures of one row.
type Violation struct {
	Count       int
	Fields      []string
	Description string
}

// Add records a failing field. Entries are appended in policy order and the
// description grows by one "; "-separated clause per field.
func (v *Violation) Add(p FieldPolicy, o Outcome) {
	v.Count++
	v.Fields = append(v.Fields, p.FieldName)

	clause := fmt.Sprintf("field=%s value=%q table=%s column=%s limit=%d length=%d",
		p.FieldName, o.Trimmed, p.Table, p.Column, p.TargetSize, o.Length)
	if v.Description == "" {
		v.Description = clause
	} else {
		v.Description += "; " + clause
	}
}

// FieldList joins the offending field names with commas, as expected by the
// error stream.
func (v Violation) FieldList() string { return strings.Join(v.Fields, ",") }

// Empty reports whether no field failed.
func (v Violation) Empty() bool { return v.Count == 0 }
