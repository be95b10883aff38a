// Package snapshot provides immutable configuration snapshots: the mapping
// from every feature in a namespace to its current definition, plus metadata
// identifying where the snapshot came from. Snapshots are swapped atomically
// by the registry; readers share them by reference and never see a mixture
// of two snapshots.
package snapshot

import (
	"fmt"
	"time"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/schema"
)

// Metadata describes a configuration snapshot's provenance. All fields are
// optional.
type Metadata struct {
	Version     string
	GeneratedAt time.Time
	Source      string
}

// Configuration is an immutable snapshot of flag definitions. Insertion
// order is preserved so encoded output is stable.
type Configuration struct {
	order []flags.FeatureID
	defs  map[flags.FeatureID]flags.Definition
	meta  Metadata
}

// NewConfiguration builds a Configuration from definitions, preserving their
// order. Duplicate feature ids are rejected.
func NewConfiguration(defs []flags.Definition, meta Metadata) (*Configuration, error) {
	c := &Configuration{
		order: make([]flags.FeatureID, 0, len(defs)),
		defs:  make(map[flags.FeatureID]flags.Definition, len(defs)),
		meta:  meta,
	}
	for _, d := range defs {
		if _, dup := c.defs[d.ID]; dup {
			return nil, fmt.Errorf("configuration: duplicate feature %s", d.ID)
		}
		c.defs[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c, nil
}

// Definition returns the definition for a feature id.
func (c *Configuration) Definition(id flags.FeatureID) (flags.Definition, bool) {
	d, ok := c.defs[id]
	return d, ok
}

// Features returns the feature ids in insertion order. The slice is a copy.
func (c *Configuration) Features() []flags.FeatureID {
	out := make([]flags.FeatureID, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of flags in the snapshot.
func (c *Configuration) Len() int { return len(c.order) }

// Metadata returns the snapshot metadata.
func (c *Configuration) Metadata() Metadata { return c.meta }

// WithMetadata returns a copy of the configuration carrying new metadata.
// The definitions are shared; they are immutable.
func (c *Configuration) WithMetadata(meta Metadata) *Configuration {
	return &Configuration{order: c.order, defs: c.defs, meta: meta}
}

// Equal reports whether two configurations hold the same flags in the same
// order with the same metadata. Fingerprints compare the flag content only;
// Equal also compares metadata.
func (c *Configuration) Equal(o *Configuration) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.meta.Version != o.meta.Version || c.meta.Source != o.meta.Source ||
		!c.meta.GeneratedAt.Equal(o.meta.GeneratedAt) {
		return false
	}
	return c.Fingerprint() == o.Fingerprint()
}

// Materialized is a Configuration validated against a specific compiled
// schema and therefore safe to load into a registry. Produce one through
// Materialize (the codec does this after a successful decode).
type Materialized struct {
	*Configuration
	schema      *schema.Schema
	fingerprint uint64
}

// Materialize validates a configuration against a schema: every feature in
// the configuration must be declared, every declared feature must be
// present, and every value must match its declared witness.
func Materialize(c *Configuration, s *schema.Schema) (*Materialized, error) {
	if c == nil || s == nil {
		return nil, fmt.Errorf("materialize: configuration and schema are required")
	}
	if c.Len() != s.Len() {
		return nil, fmt.Errorf("materialize: configuration has %d flags, schema %s declares %d",
			c.Len(), s.Namespace(), s.Len())
	}
	for _, id := range c.order {
		entry, ok := s.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("materialize: feature %s not declared in schema %s", id, s.Namespace())
		}
		def := c.defs[id]
		if err := entry.CheckValue(def.Default); err != nil {
			return nil, fmt.Errorf("materialize: default: %w", err)
		}
		for i, r := range def.Rules() {
			if err := entry.CheckValue(r.Value); err != nil {
				return nil, fmt.Errorf("materialize: rule %d: %w", i, err)
			}
		}
	}
	return &Materialized{Configuration: c, schema: s, fingerprint: c.Fingerprint()}, nil
}

// Schema returns the schema the snapshot was validated against.
func (m *Materialized) Schema() *schema.Schema { return m.schema }

// Fingerprint returns the content fingerprint computed at materialization.
func (m *Materialized) Fingerprint() uint64 { return m.fingerprint }
