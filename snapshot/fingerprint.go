package snapshot

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/values"
)

// Fingerprint returns a 64-bit content fingerprint of the flag map. Two
// configurations with the same flags in the same order fingerprint equally,
// regardless of metadata. The hash walks a canonical field order with sets
// sorted, so it is stable across processes. Not a wire contract; used for
// cheap change detection in hooks, metrics and tooling.
func (c *Configuration) Fingerprint() uint64 {
	d := xxhash.New()
	for _, id := range c.order {
		def := c.defs[id]
		writeString(d, id.String())
		writeString(d, def.Salt)
		writeBool(d, def.Active)
		writeValue(d, def.Default)
		for _, sid := range def.Allowlist.Sorted() {
			writeString(d, string(sid))
		}
		for _, r := range def.Rules() {
			writeRule(d, &r)
		}
	}
	return d.Sum64()
}

func writeRule(d *xxhash.Digest, r *rules.Rule) {
	writeValue(d, r.Value)
	writeString(d, fmt.Sprintf("%g", r.RampUp))
	for _, sid := range r.RampUpAllowlist.Sorted() {
		writeString(d, string(sid))
	}
	writeStringSet(d, r.Locales)
	writeStringSet(d, r.Platforms)
	writeRange(d, r.VersionRange)
	axes := make([]string, 0, len(r.AxisConstraints))
	for axis := range r.AxisConstraints {
		axes = append(axes, axis)
	}
	sort.Strings(axes)
	for _, axis := range axes {
		writeString(d, axis)
		writeStringSet(d, r.AxisConstraints[axis])
	}
	for _, ext := range r.Extensions {
		writeString(d, ext.Name)
		writeString(d, ext.Source)
		writeUint64(d, uint64(ext.Specificity))
	}
	writeString(d, r.Note)
}

func writeValue(d *xxhash.Digest, v values.Value) {
	writeString(d, v.Kind.String())
	switch v.Kind {
	case values.KindBoolean:
		writeBool(d, v.BoolVal)
	case values.KindString:
		writeString(d, v.StrVal)
	case values.KindInt:
		writeUint64(d, uint64(v.IntVal))
	case values.KindDouble:
		writeString(d, fmt.Sprintf("%g", v.DoubleVal))
	case values.KindEnum:
		writeString(d, v.EnumClass)
		writeString(d, v.StrVal)
	case values.KindDataClass:
		writeString(d, v.DataClass)
		writeFields(d, v.Fields)
	}
}

func writeFields(d *xxhash.Digest, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeString(d, k)
		writeString(d, fmt.Sprintf("%v", fields[k]))
	}
}

func writeRange(d *xxhash.Digest, r rules.VersionRange) {
	writeUint64(d, uint64(r.Kind()))
	if min, ok := r.Min(); ok {
		writeString(d, min.String())
	}
	if max, ok := r.Max(); ok {
		writeString(d, max.String())
	}
}

func writeStringSet(d *xxhash.Digest, s rules.StringSet) {
	tags := make([]string, 0, len(s))
	for t := range s {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	for _, t := range tags {
		writeString(d, t)
	}
}

func writeString(d *xxhash.Digest, s string) {
	writeUint64(d, uint64(len(s)))
	_, _ = d.WriteString(s)
}

func writeBool(d *xxhash.Digest, b bool) {
	if b {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
}

func writeUint64(d *xxhash.Digest, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, _ = d.Write(buf[:])
}
