package registry

import (
	"github.com/google/uuid"

	"github.com/TimurManjosov/flagcore/codec"
	"github.com/TimurManjosov/flagcore/snapshot"
)

// SnapshotLoader composes the codec with a registry: decode a payload
// against the registry's schema, then atomically load it. A decode failure
// leaves the previously-active snapshot in force.
type SnapshotLoader struct {
	registry *Registry
	opts     codec.Options
}

// NewSnapshotLoader builds a loader with fixed decode options.
func NewSnapshotLoader(r *Registry, opts codec.Options) *SnapshotLoader {
	return &SnapshotLoader{registry: r, opts: opts}
}

// Load decodes and loads a snapshot payload. Payloads whose meta block
// carries no version are stamped with a fresh UUID so every loaded snapshot
// is identifiable in history listings and explain traces.
func (l *SnapshotLoader) Load(payload []byte) (*snapshot.Materialized, error) {
	m, err := codec.Decode(payload, l.registry.Schema(), l.opts)
	if err != nil {
		return nil, err
	}
	if m.Metadata().Version == "" {
		meta := m.Metadata()
		meta.Version = uuid.NewString()
		stamped, err := snapshot.Materialize(m.Configuration.WithMetadata(meta), l.registry.Schema())
		if err != nil {
			return nil, err
		}
		m = stamped
	}
	if err := l.registry.Load(m); err != nil {
		return nil, err
	}
	return m, nil
}
