package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// headerNamer turns raw header cells into schema field names.
//
// Names keep their case: field policies match them exactly. header_map keys
// are compared case-insensitively because config loading lower-cases them.
type headerNamer struct {
	mapping map[string]string // lower-cased source name -> field name
	fold    transform.Transformer
}

func newHeaderNamer(mapping map[string]string, fold bool) *headerNamer {
	n := &headerNamer{mapping: make(map[string]string, len(mapping))}
	for k, v := range mapping {
		n.mapping[strings.ToLower(k)] = v
	}
	if fold {
		n.fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	}
	return n
}

// names normalizes a header record in place and returns it.
func (n *headerNamer) names(hdr []string) []string {
	hdr = StripHeaderBOM(hdr)
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if mapped, ok := n.mapping[strings.ToLower(h)]; ok {
			hdr[i] = mapped
			continue
		}
		hdr[i] = n.foldName(h)
	}
	return hdr
}

// foldName strips combining marks ("Město" -> "Mesto") when folding is on.
func (n *headerNamer) foldName(s string) string {
	if n.fold == nil {
		return s
	}
	n.fold.Reset()
	out, _, err := transform.String(n.fold, s)
	if err != nil {
		return s
	}
	return out
}
