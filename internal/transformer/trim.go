package transformer

import (
	"fmt"
	"strings"
	"unicode"
)

// TrimMode selects the whitespace stripping applied to a value before its
// length is measured.
type TrimMode uint8

const (
	TrimNone TrimMode = iota
	TrimLeft
	TrimRight
	TrimBoth
)

// String returns the configuration code for m ("none", "left", "right", "both").
func (m TrimMode) String() string {
	switch m {
	case TrimLeft:
		return "left"
	case TrimRight:
		return "right"
	case TrimBoth:
		return "both"
	default:
		return "none"
	}
}

// ParseTrimMode maps a configuration code onto a TrimMode. The empty string
// means TrimNone. Matching is case-insensitive.
func ParseTrimMode(s string) (TrimMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return TrimNone, nil
	case "left":
		return TrimLeft, nil
	case "right":
		return TrimRight, nil
	case "both":
		return TrimBoth, nil
	default:
		return TrimNone, fmt.Errorf("unknown trim mode %q (want none|left|right|both)", s)
	}
}

// Trim applies mode to s. Whitespace is anything unicode.IsSpace reports.
func Trim(s string, mode TrimMode) string {
	switch mode {
	case TrimLeft:
		return strings.TrimLeftFunc(s, unicode.IsSpace)
	case TrimRight:
		return strings.TrimRightFunc(s, unicode.IsSpace)
	case TrimBoth:
		return strings.TrimFunc(s, unicode.IsSpace)
	default:
		return s
	}
}
