package transformer

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/zeebo/xxh3"

	"fieldsize/internal/catalog"
)

// Mode is fixed per step variant: check flags oversized values, resize
// truncates them.
type Mode uint8

const (
	ModeCheck Mode = iota
	ModeResize
)

func (m Mode) String() string {
	if m == ModeResize {
		return "resize"
	}
	return "check"
}

// MissingPolicy decides what Resolve does with a policy whose column was not
// found in the catalog.
type MissingPolicy uint8

const (
	// MissingZero leaves TargetSize at 0: every non-empty value violates in
	// check mode and is truncated to "" in resize mode.
	MissingZero MissingPolicy = iota
	// MissingUnbounded disables the limit for that field.
	MissingUnbounded
	// MissingFail turns the lookup miss into a MetadataResolutionError.
	MissingFail
)

// ParseMissingPolicy maps "zero" (default), "unbounded" or "fail".
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch s {
	case "", "zero":
		return MissingZero, nil
	case "unbounded":
		return MissingUnbounded, nil
	case "fail":
		return MissingFail, nil
	default:
		return MissingZero, fmt.Errorf("unknown missing column policy %q (want zero|unbounded|fail)", s)
	}
}

func (p MissingPolicy) String() string {
	switch p {
	case MissingUnbounded:
		return "unbounded"
	case MissingFail:
		return "fail"
	default:
		return "zero"
	}
}

// Unbounded is the TargetSize of a policy without a limit.
const Unbounded = -1

// FieldPolicy is the configured rule for one field.
type FieldPolicy struct {
	FieldName string
	Table     string
	Column    string
	Trim      TrimMode

	// TargetSize is 0 until Resolve runs. Unbounded (-1) means no limit.
	TargetSize int
	// Resolved reports whether the catalog returned a size for Table.Column.
	Resolved bool
}

// Ref returns the catalog reference the policy resolves against.
func (p FieldPolicy) Ref() catalog.Ref {
	return catalog.Ref{Table: p.Table, Column: p.Column}
}

// PolicySet is the ordered collection of field policies of one step copy.
// It is built from configuration, resolved exactly once, then read-only.
type PolicySet struct {
	mode     Mode
	policies []FieldPolicy
	byName   map[string]int
	resolved bool
}

// NewPolicySet validates and indexes policies. The slice is copied.
func NewPolicySet(mode Mode, policies []FieldPolicy) (*PolicySet, error) {
	if len(policies) == 0 {
		return nil, &ConfigurationError{Msg: "no field policies configured"}
	}
	s := &PolicySet{
		mode:     mode,
		policies: make([]FieldPolicy, len(policies)),
		byName:   make(map[string]int, len(policies)),
	}
	for i, p := range policies {
		if p.FieldName == "" {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("policy #%d: field name is empty", i+1)}
		}
		if p.Table == "" || p.Column == "" {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("policy %q: reference table and column are required", p.FieldName)}
		}
		if _, dup := s.byName[p.FieldName]; dup {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("field %q is configured more than once", p.FieldName)}
		}
		if mode == ModeResize && (p.Trim == TrimLeft || p.Trim == TrimRight) {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("policy %q: resize accepts trim none or both, got %s", p.FieldName, p.Trim)}
		}
		p.TargetSize = 0
		p.Resolved = false
		s.policies[i] = p
		s.byName[p.FieldName] = i
	}
	return s, nil
}

// Mode returns the step variant the set was built for.
func (s *PolicySet) Mode() Mode { return s.mode }

// Len returns the number of policies.
func (s *PolicySet) Len() int { return len(s.policies) }

// At returns the i-th policy in configuration order.
func (s *PolicySet) At(i int) FieldPolicy { return s.policies[i] }

// Policies returns a copy of the policies in configuration order.
func (s *PolicySet) Policies() []FieldPolicy {
	return append([]FieldPolicy(nil), s.policies...)
}

// Lookup returns the policy for field.
func (s *PolicySet) Lookup(field string) (FieldPolicy, bool) {
	ix, ok := s.byName[field]
	if !ok {
		return FieldPolicy{}, false
	}
	return s.policies[ix], true
}

// IsResolved reports whether Resolve has completed.
func (s *PolicySet) IsResolved() bool { return s.resolved }

// Refs returns the distinct catalog references in policy order.
func (s *PolicySet) Refs() []catalog.Ref {
	seen := make(map[catalog.Ref]struct{}, len(s.policies))
	out := make([]catalog.Ref, 0, len(s.policies))
	for _, p := range s.policies {
		r := p.Ref()
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Resolve fills TargetSize from sizes. It may run once; a second call fails
// so that limits never change mid-stream. Negative catalog sizes (e.g. MSSQL
// varchar(max)) are stored as Unbounded.
func (s *PolicySet) Resolve(sizes catalog.Sizes, missing MissingPolicy, logger *slog.Logger) error {
	if s.resolved {
		return fmt.Errorf("policy set already resolved")
	}
	if logger == nil {
		logger = slog.Default()
	}

	next := make([]FieldPolicy, len(s.policies))
	copy(next, s.policies)

	for i := range next {
		p := &next[i]
		size, ok := sizes[p.Ref()]
		if ok {
			p.Resolved = true
			if size < 0 {
				p.TargetSize = Unbounded
			} else {
				p.TargetSize = size
			}
			continue
		}
		switch missing {
		case MissingFail:
			return &MetadataResolutionError{
				Table:  p.Table,
				Column: p.Column,
				Err:    catalog.ErrColumnNotFound,
			}
		case MissingUnbounded:
			p.TargetSize = Unbounded
			logger.Warn("resolve: column not found, field left unbounded",
				"field", p.FieldName, "table", p.Table, "column", p.Column)
		default:
			p.TargetSize = 0
			logger.Warn("resolve: column not found, target size stays 0",
				"field", p.FieldName, "table", p.Table, "column", p.Column)
		}
	}

	s.policies = next
	s.resolved = true
	return nil
}

// Fingerprint hashes the resolved limits (field, table, column, trim, size)
// in policy order. Copies of one run that resolved the same catalog state
// produce the same value.
func (s *PolicySet) Fingerprint() uint64 {
	h := xxh3.New()
	var num [8]byte
	for _, p := range s.policies {
		_, _ = h.WriteString(p.FieldName)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Table)
		_, _ = h.Write([]byte{0})
		_, _ = h.WriteString(p.Column)
		_, _ = h.Write([]byte{0, byte(p.Trim)})
		binary.LittleEndian.PutUint64(num[:], uint64(int64(p.TargetSize)))
		_, _ = h.Write(num[:])
	}
	return h.Sum64()
}
