// Package step turns a step configuration into running field size step
// copies: it maps step kinds to policy sets, opens the catalog resolvers,
// fans input rows out to the copies and collects their results.
package step

import (
	"fmt"
	"sort"
	"sync"

	"fieldsize/internal/config"
	"fieldsize/internal/transformer"
)

// Constructor builds the unresolved policy set of one step copy.
type Constructor func(fields []config.Field) (*transformer.PolicySet, error)

var (
	regMu        sync.RWMutex
	constructors = map[string]Constructor{}
)

// Register registers (or replaces) the constructor for a step kind.
func Register(kind string, c Constructor) {
	regMu.Lock()
	defer regMu.Unlock()
	constructors[kind] = c
}

// New builds a fresh policy set for s. Each copy calls it for its own set.
func New(s config.Step) (*transformer.PolicySet, error) {
	regMu.RLock()
	c, ok := constructors[s.Kind]
	regMu.RUnlock()
	if !ok {
		return nil, &transformer.ConfigurationError{Msg: fmt.Sprintf("unsupported step.kind=%s", s.Kind)}
	}
	return c(s.Fields)
}

// Kinds returns a sorted snapshot of the registered step kinds.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(constructors))
	for k := range constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	check := func(f []config.Field) (*transformer.PolicySet, error) { return policySet(transformer.ModeCheck, f) }
	resize := func(f []config.Field) (*transformer.PolicySet, error) { return policySet(transformer.ModeResize, f) }

	Register("check", check)
	Register("StringCheckDynamic", check)
	Register("resize", resize)
	Register("StringResizeDynamic", resize)
}

func policySet(mode transformer.Mode, fields []config.Field) (*transformer.PolicySet, error) {
	policies := make([]transformer.FieldPolicy, 0, len(fields))
	for _, f := range fields {
		trim, err := transformer.ParseTrimMode(f.Trim)
		if err != nil {
			return nil, &transformer.ConfigurationError{Msg: fmt.Sprintf("policy %q: %v", f.Field, err)}
		}
		policies = append(policies, transformer.FieldPolicy{
			FieldName: f.Field,
			Table:     f.Table,
			Column:    f.Column,
			Trim:      trim,
		})
	}
	return transformer.NewPolicySet(mode, policies)
}
