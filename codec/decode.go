// Package codec converts between the JSON wire format and materialized
// configuration snapshots, gated by a compiled schema. Decoding is
// all-or-nothing: a payload becomes a fully-validated snapshot or a typed
// ParseError, never a half-applied state.
package codec

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/TimurManjosov/flagcore/engine"
	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/rollout"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/schema"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

// defaultRampUp is the ramp-up a rule takes when the wire omits one: no
// percentage gating.
const defaultRampUp = 100.0

// Decode parses a snapshot payload against a schema. On success the returned
// snapshot conforms to the schema in full; on failure the returned error is
// a *ParseError and nothing has been produced.
func Decode(payload []byte, s *schema.Schema, opts Options) (*snapshot.Materialized, error) {
	d := &decoder{schema: s, opts: opts}

	doc, perr := d.parse(payload)
	if perr != nil {
		return nil, perr
	}

	decoded := make(map[flags.FeatureID]flags.Definition, len(doc.Flags))
	for i := range doc.Flags {
		wf := &doc.Flags[i]
		id, entry, skip, perr := d.resolveKey(wf.Key)
		if perr != nil {
			return nil, perr
		}
		if skip {
			continue
		}
		if _, dup := decoded[id]; dup {
			return nil, d.errf(ErrInvalidSnapshot, id.String(), "", "duplicate flag key")
		}
		def, perr := d.decodeFlag(wf, id, entry)
		if perr != nil {
			return nil, perr
		}
		decoded[id] = def
	}

	// Resolve declared features the payload omitted, preserving schema order.
	ordered := make([]flags.Definition, 0, d.schema.Len())
	for _, id := range d.schema.Features() {
		def, ok := decoded[id]
		if !ok {
			entry, _ := d.schema.Lookup(id)
			if d.opts.MissingFeatures != MissingFeatureFill || entry.Definition.ID.IsZero() {
				return nil, d.errf(ErrInvalidSnapshot, id.String(), "", "declared flag missing from payload")
			}
			def = entry.Definition
		}
		ordered = append(ordered, def)
	}

	cfg, err := snapshot.NewConfiguration(ordered, d.decodeMeta(doc.Meta))
	if err != nil {
		return nil, d.errf(ErrInvalidSnapshot, "", "", "%v", err)
	}
	m, err := snapshot.Materialize(cfg, d.schema)
	if err != nil {
		return nil, d.errf(ErrInvalidSnapshot, "", "", "%v", err)
	}
	return m, nil
}

type decoder struct {
	schema *schema.Schema
	opts   Options
}

func (d *decoder) parse(payload []byte) (*wireSnapshot, *ParseError) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	if d.opts.UnknownFields == UnknownFieldReject {
		dec.DisallowUnknownFields()
	}
	var doc wireSnapshot
	if err := dec.Decode(&doc); err != nil {
		kind := ErrInvalidJSON
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			kind = ErrInvalidSnapshot
		}
		if isUnknownFieldError(err) {
			kind = ErrInvalidSnapshot
		}
		return nil, d.errf(kind, "", "", "%v", err)
	}
	if dec.More() {
		return nil, d.errf(ErrInvalidJSON, "", "", "trailing data after snapshot document")
	}
	return &doc, nil
}

// isUnknownFieldError distinguishes DisallowUnknownFields rejections, which
// are structural failures, from syntactic ones.
func isUnknownFieldError(err error) bool {
	return bytes.Contains([]byte(err.Error()), []byte("unknown field"))
}

// resolveKey parses a flag key and looks it up in the schema. skip is true
// when the flag should be dropped under lenient unknown-feature handling.
func (d *decoder) resolveKey(key string) (flags.FeatureID, schema.Entry, bool, *ParseError) {
	id, err := flags.ParseFeatureID(key)
	if err != nil {
		return flags.FeatureID{}, schema.Entry{}, false, d.errf(ErrInvalidSnapshot, "", key, "%v", err)
	}
	entry, ok := d.schema.Lookup(id)
	if !ok || id.Namespace != d.schema.Namespace() {
		if d.opts.UnknownFeatures == UnknownFeatureSkip {
			d.opts.warnf("skipping unknown feature %s", id)
			return flags.FeatureID{}, schema.Entry{}, true, nil
		}
		return flags.FeatureID{}, schema.Entry{}, false, d.errf(ErrFeatureNotFound, id.String(), "", "feature not declared in schema")
	}
	return id, entry, false, nil
}

func (d *decoder) decodeFlag(wf *wireFlag, id flags.FeatureID, entry schema.Entry) (flags.Definition, *ParseError) {
	defaultValue, perr := d.decodeValue(wf.DefaultValue, entry, id)
	if perr != nil {
		return flags.Definition{}, perr
	}

	allowlist, perr := d.decodeAllowlist(wf.RampUpAllowlist, id)
	if perr != nil {
		return flags.Definition{}, perr
	}

	ruleList := make([]rules.Rule, 0, len(wf.Rules))
	for i := range wf.Rules {
		r, perr := d.decodeRule(&wf.Rules[i], id, entry, i)
		if perr != nil {
			return flags.Definition{}, perr
		}
		ruleList = append(ruleList, r)
	}

	salt := flags.DefaultSalt
	if wf.Salt != nil {
		salt = *wf.Salt
	}
	active := true
	if wf.IsActive != nil {
		active = *wf.IsActive
	}

	def, err := flags.NewDefinition(flags.DefinitionParams{
		ID:        id,
		Default:   defaultValue,
		Rules:     ruleList,
		Salt:      salt,
		Active:    active,
		Allowlist: allowlist,
	})
	if err != nil {
		return flags.Definition{}, d.errf(ErrInvalidSnapshot, id.String(), "", "%v", err)
	}
	return def, nil
}

func (d *decoder) decodeRule(wr *wireRule, id flags.FeatureID, entry schema.Entry, idx int) (rules.Rule, *ParseError) {
	value, perr := d.decodeValue(wr.Value, entry, id)
	if perr != nil {
		return rules.Rule{}, perr
	}

	rampUp := defaultRampUp
	if wr.RampUp != nil {
		rampUp = *wr.RampUp
	}
	if err := rollout.ValidateRampUp(rampUp); err != nil {
		return rules.Rule{}, d.errf(ErrInvalidRollout, id.String(), formatFloat(rampUp), "rule %d: %v", idx, err)
	}

	allowlist, perr := d.decodeAllowlist(wr.RampUpAllowlist, id)
	if perr != nil {
		return rules.Rule{}, perr
	}

	versionRange, perr := d.decodeRange(wr.VersionRange, id, idx)
	if perr != nil {
		return rules.Rule{}, perr
	}

	var axes map[string]rules.StringSet
	if len(wr.Axes) > 0 {
		axes = make(map[string]rules.StringSet, len(wr.Axes))
		for axis, allowed := range wr.Axes {
			if axis == "" {
				return rules.Rule{}, d.errf(ErrInvalidSnapshot, id.String(), "", "rule %d: empty axis id", idx)
			}
			axes[axis] = rules.NewStringSet(allowed...)
		}
	}

	var extensions []rules.Extension
	if len(wr.Expression) > 0 {
		// Canonicalise the source the way Encode writes it (compact, HTML-safe
		// escapes) so a decode/encode/decode round-trip keeps the same source.
		source, err := json.Marshal(wr.Expression)
		if err != nil {
			return rules.Rule{}, d.errf(ErrInvalidSnapshot, id.String(), string(wr.Expression), "rule %d: %v", idx, err)
		}
		ext, err := engine.ExpressionExtension("expression", string(source))
		if err != nil {
			return rules.Rule{}, d.errf(ErrInvalidSnapshot, id.String(), string(wr.Expression), "rule %d: %v", idx, err)
		}
		extensions = []rules.Extension{ext}
	}

	r, err := rules.New(rules.Params{
		Value:           value,
		RampUp:          rampUp,
		RampUpAllowlist: allowlist,
		Locales:         rules.NewStringSet(wr.Locales...),
		Platforms:       rules.NewStringSet(wr.Platforms...),
		VersionRange:    versionRange,
		AxisConstraints: axes,
		Extensions:      extensions,
		Note:            wr.Note,
	})
	if err != nil {
		return rules.Rule{}, d.errf(ErrInvalidSnapshot, id.String(), "", "rule %d: %v", idx, err)
	}
	return r, nil
}

func (d *decoder) decodeValue(wv wireValue, entry schema.Entry, id flags.FeatureID) (values.Value, *ParseError) {
	kind := values.ParseKind(wv.Type)
	if kind == values.KindInvalid {
		return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), wv.Type, "unknown value type tag")
	}
	if kind != entry.Kind {
		return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), wv.Type,
			"value is %s, schema declares %s", kind, entry.Kind)
	}
	if len(wv.Value) == 0 {
		return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), "", "value payload is missing")
	}

	var v values.Value
	switch kind {
	case values.KindBoolean:
		var b bool
		if err := json.Unmarshal(wv.Value, &b); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "boolean payload: %v", err)
		}
		v = values.Bool(b)
	case values.KindString:
		var s string
		if err := json.Unmarshal(wv.Value, &s); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "string payload: %v", err)
		}
		v = values.String(s)
	case values.KindInt:
		var n int64
		if err := json.Unmarshal(wv.Value, &n); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "int payload: %v", err)
		}
		v = values.Int(n)
	case values.KindDouble:
		var f float64
		if err := json.Unmarshal(wv.Value, &f); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "double payload: %v", err)
		}
		v = values.Double(f)
	case values.KindEnum:
		var constant string
		if err := json.Unmarshal(wv.Value, &constant); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "enum payload: %v", err)
		}
		if wv.EnumClassName == "" {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), "", "enum payload missing enumClassName")
		}
		v = values.Enum(constant, wv.EnumClassName)
	case values.KindDataClass:
		var fields map[string]any
		if err := json.Unmarshal(wv.Value, &fields); err != nil {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), string(wv.Value), "data class payload: %v", err)
		}
		if wv.DataClassName == "" {
			return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), "", "data class payload missing dataClassName")
		}
		v = values.Object(wv.DataClassName, fields)
		if entry.Decode != nil {
			custom, err := entry.Decode(fields)
			if err != nil {
				return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), "", "data class decoder: %v", err)
			}
			v = v.WithCustom(custom)
		}
	}

	if err := entry.CheckValue(v); err != nil {
		return values.Value{}, d.errf(ErrInvalidSnapshot, id.String(), "", "%v", err)
	}
	return v, nil
}

func (d *decoder) decodeAllowlist(raw []string, id flags.FeatureID) (identity.Set, *ParseError) {
	if len(raw) == 0 {
		return nil, nil
	}
	set := make(identity.Set, len(raw))
	for _, s := range raw {
		sid, err := identity.Parse(s)
		if err != nil {
			return nil, d.errf(ErrInvalidHexID, id.String(), s, "%v", err)
		}
		set[sid] = struct{}{}
	}
	return set, nil
}

func (d *decoder) decodeRange(wr *wireRange, id flags.FeatureID, idx int) (rules.VersionRange, *ParseError) {
	if wr == nil {
		return rules.Unbounded(), nil
	}
	toVersion := func(wv *wireVersion) rules.Version {
		return rules.Version{Major: wv.Major, Minor: wv.Minor, Patch: wv.Patch}
	}
	switch wr.Type {
	case rangeTagUnbounded:
		return rules.Unbounded(), nil
	case rangeTagMin:
		if wr.Min == nil {
			return rules.VersionRange{}, d.errf(ErrInvalidVersion, id.String(), wr.Type, "rule %d: MIN_BOUND range missing min", idx)
		}
		return rules.MinOnly(toVersion(wr.Min)), nil
	case rangeTagMax:
		if wr.Max == nil {
			return rules.VersionRange{}, d.errf(ErrInvalidVersion, id.String(), wr.Type, "rule %d: MAX_BOUND range missing max", idx)
		}
		return rules.MaxOnly(toVersion(wr.Max)), nil
	case rangeTagBoth:
		if wr.Min == nil || wr.Max == nil {
			return rules.VersionRange{}, d.errf(ErrInvalidVersion, id.String(), wr.Type, "rule %d: FULLY_BOUND range missing a bound", idx)
		}
		r, err := rules.Between(toVersion(wr.Min), toVersion(wr.Max))
		if err != nil {
			return rules.VersionRange{}, d.errf(ErrInvalidVersion, id.String(), wr.Type, "rule %d: %v", idx, err)
		}
		return r, nil
	default:
		return rules.VersionRange{}, d.errf(ErrInvalidVersion, id.String(), wr.Type, "rule %d: unknown range type", idx)
	}
}

func (d *decoder) decodeMeta(wm *wireMeta) snapshot.Metadata {
	if wm == nil {
		return snapshot.Metadata{}
	}
	meta := snapshot.Metadata{Version: wm.Version, Source: wm.Source}
	if wm.GeneratedAtEpochMilli > 0 {
		meta.GeneratedAt = time.UnixMilli(wm.GeneratedAtEpochMilli).UTC()
	}
	return meta
}
