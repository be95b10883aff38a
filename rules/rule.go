// Package rules defines targeting rules: per-axis predicates, version
// ranges, ramp-up configuration and the specificity score that orders rules
// during evaluation. Predicates compose conjunctively, and absence is
// permissive: an empty constraint never rejects a context.
package rules

import (
	"fmt"

	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/rollout"
	"github.com/TimurManjosov/flagcore/values"
)

// StringSet is an unordered set of string tags (locales, platforms, axis
// values).
type StringSet map[string]struct{}

// NewStringSet builds a StringSet from the given tags.
func NewStringSet(tags ...string) StringSet {
	s := make(StringSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

// Contains reports membership. A nil set contains nothing.
func (s StringSet) Contains(tag string) bool {
	_, ok := s[tag]
	return ok
}

// EvalContext is the capability set a rule consults during matching. The
// engine's Context implements it; hosts embedding domain fields only need to
// expose these accessors. The second return reports whether the context
// carries a value for the axis at all.
type EvalContext interface {
	StableID() identity.StableID
	Locale() (string, bool)
	Platform() (string, bool)
	Version() (Version, bool)
	AxisValue(axis string) (string, bool)

	// AttributeMap returns the materialised input for custom extension
	// predicates. Everything an extension consults must already be in it.
	AttributeMap() map[string]any
}

// Extension is a user-supplied predicate with a declared specificity
// contribution. Match must be side-effect-free and deterministic; an error
// return (or panic) is treated as a non-match by the evaluator.
type Extension struct {
	Name        string
	Specificity int
	Match       func(EvalContext) (bool, error)

	// Source is the serialized form of a wire-loadable extension (a JSON
	// Logic expression). Empty for host-registered predicates, which do not
	// survive encoding.
	Source string
}

// Params carries the inputs for constructing a Rule.
type Params struct {
	Value           values.Value
	RampUp          float64 // percentage in [0, 100]; 100 disables gating
	RampUpAllowlist identity.Set
	Locales         StringSet
	Platforms       StringSet
	VersionRange    VersionRange
	AxisConstraints map[string]StringSet
	Extensions      []Extension
	Note            string
}

// Rule is a bound predicate set with the value it resolves to and its ramp-up
// configuration. Rules are immutable after construction; the specificity
// score is computed once and cached.
type Rule struct {
	Value           values.Value
	RampUp          float64
	RampUpAllowlist identity.Set
	Locales         StringSet
	Platforms       StringSet
	VersionRange    VersionRange
	AxisConstraints map[string]StringSet
	Extensions      []Extension
	Note            string

	specificity int
}

// New validates the params and constructs a Rule with its cached specificity.
func New(p Params) (Rule, error) {
	if p.Value.IsZero() {
		return Rule{}, fmt.Errorf("rule: value is required")
	}
	if err := rollout.ValidateRampUp(p.RampUp); err != nil {
		return Rule{}, err
	}
	r := Rule{
		Value:           p.Value,
		RampUp:          p.RampUp,
		RampUpAllowlist: p.RampUpAllowlist,
		Locales:         p.Locales,
		Platforms:       p.Platforms,
		VersionRange:    p.VersionRange,
		AxisConstraints: p.AxisConstraints,
		Extensions:      p.Extensions,
		Note:            p.Note,
	}
	r.specificity = computeSpecificity(&r)
	return r, nil
}

// Specificity returns the cached score: one point per non-empty constraint
// category (locales, platforms, a bounded version range, each constrained
// axis) plus the sum of extension specificities. Higher scores are evaluated
// first; ties keep declaration order.
func (r *Rule) Specificity() int { return r.specificity }

func computeSpecificity(r *Rule) int {
	score := 0
	if len(r.Locales) > 0 {
		score++
	}
	if len(r.Platforms) > 0 {
		score++
	}
	if r.VersionRange.Bounded() {
		score++
	}
	score += len(r.AxisConstraints)
	for _, ext := range r.Extensions {
		score += ext.Specificity
	}
	return score
}

// MatchesConstraints evaluates the built-in targeting axes conjunctively:
// locales, platforms, version range and axis constraints. Extensions are
// evaluated separately by the engine so their failures can be observed.
// A context missing a constrained axis never matches a non-empty constraint.
func (r *Rule) MatchesConstraints(ctx EvalContext) bool {
	if len(r.Locales) > 0 {
		locale, ok := ctx.Locale()
		if !ok || !r.Locales.Contains(locale) {
			return false
		}
	}
	if len(r.Platforms) > 0 {
		platform, ok := ctx.Platform()
		if !ok || !r.Platforms.Contains(platform) {
			return false
		}
	}
	if r.VersionRange.Bounded() {
		version, ok := ctx.Version()
		if !ok || !r.VersionRange.Matches(version) {
			return false
		}
	}
	for axis, allowed := range r.AxisConstraints {
		if len(allowed) == 0 {
			continue
		}
		value, ok := ctx.AxisValue(axis)
		if !ok || !allowed.Contains(value) {
			return false
		}
	}
	return true
}
