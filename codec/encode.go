package codec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

// Encode serializes a configuration to its canonical JSON form. Encoding is
// total and stable: flags emit in the configuration's (schema) order, fields
// in a fixed order, and sets sorted. Host-registered extensions without a
// serialized source are dropped; only wire-loadable expressions survive.
func Encode(c *snapshot.Configuration) ([]byte, error) {
	doc := wireSnapshot{Flags: make([]wireFlag, 0, c.Len())}

	meta := c.Metadata()
	if meta.Version != "" || meta.Source != "" || !meta.GeneratedAt.IsZero() {
		wm := &wireMeta{Version: meta.Version, Source: meta.Source}
		if !meta.GeneratedAt.IsZero() {
			wm.GeneratedAtEpochMilli = meta.GeneratedAt.UnixMilli()
		}
		doc.Meta = wm
	}

	for _, id := range c.Features() {
		def, _ := c.Definition(id)
		doc.Flags = append(doc.Flags, encodeFlag(&def))
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return out, nil
}

func encodeFlag(def *flags.Definition) wireFlag {
	salt := def.Salt
	active := def.Active
	wf := wireFlag{
		Key:             def.ID.String(),
		DefaultValue:    encodeValue(def.Default),
		Salt:            &salt,
		IsActive:        &active,
		RampUpAllowlist: encodeAllowlist(def.Allowlist),
	}
	ruleList := def.Rules()
	if len(ruleList) > 0 {
		wf.Rules = make([]wireRule, 0, len(ruleList))
		for i := range ruleList {
			wf.Rules = append(wf.Rules, encodeRule(&ruleList[i]))
		}
	}
	return wf
}

func encodeRule(r *rules.Rule) wireRule {
	rampUp := r.RampUp
	wr := wireRule{
		Value:           encodeValue(r.Value),
		RampUp:          &rampUp,
		RampUpAllowlist: encodeAllowlist(r.RampUpAllowlist),
		Note:            r.Note,
		Locales:         sortedTags(r.Locales),
		Platforms:       sortedTags(r.Platforms),
		VersionRange:    encodeRange(r.VersionRange),
	}
	if len(r.AxisConstraints) > 0 {
		wr.Axes = make(map[string][]string, len(r.AxisConstraints))
		for axis, allowed := range r.AxisConstraints {
			wr.Axes[axis] = sortedTags(allowed)
		}
	}
	for _, ext := range r.Extensions {
		if ext.Source != "" {
			wr.Expression = json.RawMessage(ext.Source)
			break
		}
	}
	return wr
}

func encodeValue(v values.Value) wireValue {
	wv := wireValue{Type: v.Kind.String()}
	switch v.Kind {
	case values.KindBoolean:
		wv.Value = mustMarshal(v.BoolVal)
	case values.KindString:
		wv.Value = mustMarshal(v.StrVal)
	case values.KindInt:
		wv.Value = mustMarshal(v.IntVal)
	case values.KindDouble:
		wv.Value = mustMarshal(v.DoubleVal)
	case values.KindEnum:
		wv.Value = mustMarshal(v.StrVal)
		wv.EnumClassName = v.EnumClass
	case values.KindDataClass:
		wv.Value = mustMarshal(v.Fields)
		wv.DataClassName = v.DataClass
	}
	return wv
}

func encodeRange(r rules.VersionRange) *wireRange {
	toWire := func(v rules.Version) *wireVersion {
		return &wireVersion{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	}
	switch r.Kind() {
	case rules.RangeMinOnly:
		min, _ := r.Min()
		return &wireRange{Type: rangeTagMin, Min: toWire(min)}
	case rules.RangeMaxOnly:
		max, _ := r.Max()
		return &wireRange{Type: rangeTagMax, Max: toWire(max)}
	case rules.RangeBoth:
		min, _ := r.Min()
		max, _ := r.Max()
		return &wireRange{Type: rangeTagBoth, Min: toWire(min), Max: toWire(max)}
	default:
		return nil
	}
}

func encodeAllowlist(set identity.Set) []string {
	if len(set) == 0 {
		return nil
	}
	ids := set.Sorted()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func sortedTags(s rules.StringSet) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// mustMarshal marshals primitive payloads, which cannot fail.
func mustMarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
