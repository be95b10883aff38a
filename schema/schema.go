// Package schema defines the compiled, per-namespace declaration of every
// feature a namespace owns. The schema is the trust boundary for decoding:
// an untrusted payload only becomes a loadable configuration after every key
// and value type has been checked against it.
//
// The schema also carries the typed decoder for DATA_CLASS features, so
// structured values are produced through a compile-time contract rather than
// reflection over a class name read from the payload.
package schema

import (
	"fmt"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/values"
)

// ObjectDecoder turns the raw field map of a DATA_CLASS value into the
// strongly-typed value hosts work with. Decoders must be pure; an error
// rejects the whole payload.
type ObjectDecoder func(fields map[string]any) (any, error)

// Entry declares one feature: its id, expected value type, type tags for
// ENUM / DATA_CLASS payloads, and the declared fallback definition used when
// a permissive decode fills gaps.
type Entry struct {
	ID   flags.FeatureID
	Kind values.Kind

	// EnumClass is the trusted enum tag an ENUM payload must carry.
	EnumClass string
	// DataClass is the trusted tag a DATA_CLASS payload must carry, and
	// Decode its typed decoder. Decode may be nil for tooling that only
	// inspects raw field maps.
	DataClass string
	Decode    ObjectDecoder

	// Definition is the feature's declared state, used as the fallback when
	// a snapshot omits the feature and the decode options permit filling.
	Definition flags.Definition
}

// Schema is the compiled declaration set for one namespace. Entries keep
// their declaration order, which fixes the encoded output order. Built once
// at namespace construction and never mutated.
type Schema struct {
	namespace string
	order     []flags.FeatureID
	entries   map[flags.FeatureID]Entry
}

// Build compiles the entries for a namespace, validating that ids belong to
// the namespace, are unique, and that each declared definition agrees with
// its declared kind.
func Build(namespace string, entries []Entry) (*Schema, error) {
	if namespace == "" {
		return nil, fmt.Errorf("schema: namespace is required")
	}
	s := &Schema{
		namespace: namespace,
		order:     make([]flags.FeatureID, 0, len(entries)),
		entries:   make(map[flags.FeatureID]Entry, len(entries)),
	}
	for _, e := range entries {
		if e.ID.Namespace != namespace {
			return nil, fmt.Errorf("schema %s: entry %s belongs to namespace %q", namespace, e.ID, e.ID.Namespace)
		}
		if _, dup := s.entries[e.ID]; dup {
			return nil, fmt.Errorf("schema %s: duplicate entry %s", namespace, e.ID)
		}
		if e.Kind == values.KindInvalid {
			return nil, fmt.Errorf("schema %s: entry %s has no declared kind", namespace, e.ID)
		}
		if !e.Definition.ID.IsZero() {
			if e.Definition.ID != e.ID {
				return nil, fmt.Errorf("schema %s: entry %s declares definition for %s", namespace, e.ID, e.Definition.ID)
			}
			if e.Definition.Default.Kind != e.Kind {
				return nil, fmt.Errorf("schema %s: entry %s declares %s default, expected %s",
					namespace, e.ID, e.Definition.Default.Kind, e.Kind)
			}
		}
		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	return s, nil
}

// Namespace returns the owning namespace id.
func (s *Schema) Namespace() string { return s.namespace }

// Len returns the number of declared features.
func (s *Schema) Len() int { return len(s.order) }

// Lookup returns the entry for a feature id.
func (s *Schema) Lookup(id flags.FeatureID) (Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Features returns the declared feature ids in declaration order. The slice
// is a copy.
func (s *Schema) Features() []flags.FeatureID {
	out := make([]flags.FeatureID, len(s.order))
	copy(out, s.order)
	return out
}

// CheckValue verifies that a value conforms to the entry's declared witness:
// matching kind, and for ENUM / DATA_CLASS payloads the trusted type tag.
func (e Entry) CheckValue(v values.Value) error {
	if v.Kind != e.Kind {
		return fmt.Errorf("feature %s: value is %s, schema declares %s", e.ID, v.Kind, e.Kind)
	}
	switch e.Kind {
	case values.KindEnum:
		if e.EnumClass != "" && v.EnumClass != e.EnumClass {
			return fmt.Errorf("feature %s: enum class %q, schema declares %q", e.ID, v.EnumClass, e.EnumClass)
		}
	case values.KindDataClass:
		if e.DataClass != "" && v.DataClass != e.DataClass {
			return fmt.Errorf("feature %s: data class %q, schema declares %q", e.ID, v.DataClass, e.DataClass)
		}
	}
	return nil
}
