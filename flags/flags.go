// Package flags defines feature identity and the per-feature configured
// state the evaluator reads.
package flags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/values"
)

// Separator joins namespace and local key in the canonical rendering.
const Separator = "::"

// DefaultSalt is the salt a definition carries unless one is configured.
// Changing a flag's salt deliberately resamples its bucket assignments.
const DefaultSalt = "v1"

// FeatureID identifies one feature: a namespace and a key local to it.
// Feature identity is by id, not by reference; the canonical string form
// "namespace::key" is stable across the wire format.
type FeatureID struct {
	Namespace string
	Key       string
}

// NewFeatureID builds a FeatureID from its parts.
func NewFeatureID(namespace, key string) FeatureID {
	return FeatureID{Namespace: namespace, Key: key}
}

// ParseFeatureID parses the canonical "namespace::key" rendering.
func ParseFeatureID(s string) (FeatureID, error) {
	idx := strings.Index(s, Separator)
	if idx <= 0 || idx+len(Separator) >= len(s) {
		return FeatureID{}, fmt.Errorf("feature id %q: expected \"namespace::key\"", s)
	}
	namespace := s[:idx]
	key := s[idx+len(Separator):]
	if strings.Contains(key, Separator) {
		return FeatureID{}, fmt.Errorf("feature id %q: multiple separators", s)
	}
	return FeatureID{Namespace: namespace, Key: key}, nil
}

// String renders the canonical "namespace::key" form.
func (f FeatureID) String() string { return f.Namespace + Separator + f.Key }

// IsZero reports whether the id is empty.
func (f FeatureID) IsZero() bool { return f.Namespace == "" && f.Key == "" }

// DefinitionParams carries the inputs for constructing a Definition.
type DefinitionParams struct {
	ID      FeatureID
	Default values.Value
	Rules   []rules.Rule
	Salt    string // empty means DefaultSalt
	Active  bool
	// Allowlist bypasses ramp-up gating for every rule of this flag.
	Allowlist identity.Set
}

// Definition is one feature's configured state: the default value, the
// ordered rule list, the bucketing salt, the active flag and the
// namespace-wide allowlist. Definitions are immutable once constructed;
// updates arrive as fresh configuration snapshots.
type Definition struct {
	ID        FeatureID
	Default   values.Value
	Salt      string
	Active    bool
	Allowlist identity.Set

	rules []rules.Rule
}

// NewDefinition validates params and constructs a Definition with its rules
// sorted by specificity, highest first. The sort is stable, so rules with
// equal specificity keep their declaration order.
func NewDefinition(p DefinitionParams) (Definition, error) {
	if p.ID.IsZero() {
		return Definition{}, fmt.Errorf("definition: feature id is required")
	}
	if p.Default.IsZero() {
		return Definition{}, fmt.Errorf("definition %s: default value is required", p.ID)
	}
	for i := range p.Rules {
		if p.Rules[i].Value.Kind != p.Default.Kind {
			return Definition{}, fmt.Errorf("definition %s: rule %d value is %s, default is %s",
				p.ID, i, p.Rules[i].Value.Kind, p.Default.Kind)
		}
	}
	salt := p.Salt
	if salt == "" {
		salt = DefaultSalt
	}
	ordered := make([]rules.Rule, len(p.Rules))
	copy(ordered, p.Rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Specificity() > ordered[j].Specificity()
	})
	return Definition{
		ID:        p.ID,
		Default:   p.Default,
		Salt:      salt,
		Active:    p.Active,
		Allowlist: p.Allowlist,
		rules:     ordered,
	}, nil
}

// Rules returns the rule list in evaluation order. Callers must not mutate
// the returned slice.
func (d *Definition) Rules() []rules.Rule { return d.rules }
