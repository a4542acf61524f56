package transformer

import (
	"fmt"
	"unicode/utf8"
)

// Outcome is the result of applying one FieldPolicy to one value.
type Outcome struct {
	// Value is what the field holds afterwards. Check leaves the input value;
	// resize stores the trimmed string, cut to TargetSize when it is over.
	Value any
	// Trimmed is the measured string form (after trimming).
	Trimmed string
	// Length is the character count of Trimmed.
	Length int

	Null      bool // input was nil; nothing else was evaluated
	Violated  bool // check mode: Length > TargetSize
	Truncated bool // resize mode: Value was cut to TargetSize characters
}

// ApplyPolicy trims, measures and then either checks or truncates value.
//
// Length is counted in Unicode code points and truncation keeps the first
// TargetSize code points. A nil value passes through untouched in both modes.
// Non-string values are measured on their fmt.Sprint form.
func ApplyPolicy(mode Mode, p FieldPolicy, value any) Outcome {
	if value == nil {
		return Outcome{Null: true}
	}

	s, isString := value.(string)
	if !isString {
		s = fmt.Sprint(value)
	}
	trimmed := Trim(s, p.Trim)
	n := utf8.RuneCountInString(trimmed)

	out := Outcome{Value: value, Trimmed: trimmed, Length: n}
	over := p.TargetSize != Unbounded && n > p.TargetSize

	switch mode {
	case ModeResize:
		if isString && p.Trim != TrimNone {
			out.Value = trimmed
		}
		if over {
			out.Value = truncateRunes(trimmed, p.TargetSize)
			out.Truncated = true
		}
	default:
		out.Violated = over
	}
	return out
}

// truncateRunes returns the first n code points of s.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
