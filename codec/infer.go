package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/schema"
	"github.com/TimurManjosov/flagcore/values"
)

// InferSchema builds a compiled schema from a payload's own declared value
// tags. This exists for tooling (the flagcore CLI) that must inspect
// snapshots it has no compiled-in schema for; production decode paths always
// receive an explicit schema, since a payload can never vouch for itself.
//
// DATA_CLASS entries are inferred without typed decoders, so structured
// values stay raw field maps. All flags must belong to one namespace.
func InferSchema(payload []byte) (*schema.Schema, error) {
	var doc wireSnapshot
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	if len(doc.Flags) == 0 {
		return nil, fmt.Errorf("infer schema: payload declares no flags")
	}

	namespace := ""
	entries := make([]schema.Entry, 0, len(doc.Flags))
	seen := make(map[flags.FeatureID]struct{}, len(doc.Flags))
	for i := range doc.Flags {
		wf := &doc.Flags[i]
		id, err := flags.ParseFeatureID(wf.Key)
		if err != nil {
			return nil, fmt.Errorf("infer schema: %w", err)
		}
		if namespace == "" {
			namespace = id.Namespace
		} else if id.Namespace != namespace {
			return nil, fmt.Errorf("infer schema: mixed namespaces %q and %q", namespace, id.Namespace)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("infer schema: duplicate flag key %s", id)
		}
		seen[id] = struct{}{}

		kind := values.ParseKind(wf.DefaultValue.Type)
		if kind == values.KindInvalid {
			return nil, fmt.Errorf("infer schema: flag %s: unknown value type tag %q", id, wf.DefaultValue.Type)
		}
		entries = append(entries, schema.Entry{
			ID:        id,
			Kind:      kind,
			EnumClass: wf.DefaultValue.EnumClassName,
			DataClass: wf.DefaultValue.DataClassName,
		})
	}
	return schema.Build(namespace, entries)
}
