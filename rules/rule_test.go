package rules

import (
	"testing"

	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/values"
)

// stubContext is a minimal EvalContext for predicate tests.
type stubContext struct {
	id       identity.StableID
	locale   string
	platform string
	version  *Version
	axes     map[string]string
}

func (s *stubContext) StableID() identity.StableID { return s.id }
func (s *stubContext) Locale() (string, bool)      { return s.locale, s.locale != "" }
func (s *stubContext) Platform() (string, bool)    { return s.platform, s.platform != "" }
func (s *stubContext) Version() (Version, bool) {
	if s.version == nil {
		return Version{}, false
	}
	return *s.version, true
}
func (s *stubContext) AxisValue(axis string) (string, bool) {
	v, ok := s.axes[axis]
	return v, ok
}
func (s *stubContext) AttributeMap() map[string]any { return nil }

func mustRule(t *testing.T, p Params) Rule {
	t.Helper()
	r, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_RejectsBadRampUp(t *testing.T) {
	for _, bad := range []float64{-1, 100.5} {
		if _, err := New(Params{Value: values.Bool(true), RampUp: bad}); err == nil {
			t.Errorf("New with ramp-up %g succeeded, want error", bad)
		}
	}
}

func TestNew_RejectsMissingValue(t *testing.T) {
	if _, err := New(Params{RampUp: 100}); err == nil {
		t.Error("New without value succeeded, want error")
	}
}

func TestSpecificity(t *testing.T) {
	cases := []struct {
		name string
		p    Params
		want int
	}{
		{"no constraints", Params{Value: values.Bool(true), RampUp: 100}, 0},
		{"locales only", Params{Value: values.Bool(true), RampUp: 100, Locales: NewStringSet("en-US")}, 1},
		{"platform and bounded range", Params{
			Value:        values.Bool(true),
			RampUp:       100,
			Platforms:    NewStringSet("IOS"),
			VersionRange: MinOnly(Version{Major: 3}),
		}, 2},
		{"each axis counts", Params{
			Value:  values.Bool(true),
			RampUp: 100,
			AxisConstraints: map[string]StringSet{
				"tier":   NewStringSet("premium"),
				"cohort": NewStringSet("beta"),
			},
		}, 2},
		{"extensions sum", Params{
			Value:  values.Bool(true),
			RampUp: 100,
			Extensions: []Extension{
				{Name: "a", Specificity: 2},
				{Name: "b", Specificity: 3},
			},
		}, 5},
		{"unbounded range is free", Params{
			Value:        values.Bool(true),
			RampUp:       100,
			VersionRange: Unbounded(),
		}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := mustRule(t, tc.p)
			if got := r.Specificity(); got != tc.want {
				t.Errorf("Specificity = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestMatchesConstraints_EmptyIsPermissive(t *testing.T) {
	r := mustRule(t, Params{Value: values.Bool(true), RampUp: 100})
	ctx := &stubContext{id: identity.FromString("u")}
	if !r.MatchesConstraints(ctx) {
		t.Error("rule with no constraints should match any context")
	}
}

func TestMatchesConstraints_Locale(t *testing.T) {
	r := mustRule(t, Params{Value: values.Bool(true), RampUp: 100, Locales: NewStringSet("en-US", "en-GB")})
	if !r.MatchesConstraints(&stubContext{locale: "en-US"}) {
		t.Error("en-US should match")
	}
	if r.MatchesConstraints(&stubContext{locale: "fr-FR"}) {
		t.Error("fr-FR should not match")
	}
	if r.MatchesConstraints(&stubContext{}) {
		t.Error("missing locale should not match a non-empty constraint")
	}
}

func TestMatchesConstraints_VersionRange(t *testing.T) {
	r := mustRule(t, Params{
		Value:        values.Bool(true),
		RampUp:       100,
		VersionRange: MinOnly(Version{Major: 3}),
	})
	v310 := Version{Major: 3, Minor: 1}
	v200 := Version{Major: 2}
	if !r.MatchesConstraints(&stubContext{version: &v310}) {
		t.Error("3.1.0 should match min 3.0.0")
	}
	if r.MatchesConstraints(&stubContext{version: &v200}) {
		t.Error("2.0.0 should not match min 3.0.0")
	}
	if r.MatchesConstraints(&stubContext{}) {
		t.Error("missing version should not match a bounded range")
	}
}

func TestMatchesConstraints_AxisAbsenceIsNonMatch(t *testing.T) {
	r := mustRule(t, Params{
		Value:           values.Bool(true),
		RampUp:          100,
		AxisConstraints: map[string]StringSet{"tier": NewStringSet("premium")},
	})
	if !r.MatchesConstraints(&stubContext{axes: map[string]string{"tier": "premium"}}) {
		t.Error("tier=premium should match")
	}
	if r.MatchesConstraints(&stubContext{axes: map[string]string{"tier": "free"}}) {
		t.Error("tier=free should not match")
	}
	if r.MatchesConstraints(&stubContext{}) {
		t.Error("a context without the axis should not match")
	}
}

func TestMatchesConstraints_Conjunctive(t *testing.T) {
	r := mustRule(t, Params{
		Value:     values.Bool(true),
		RampUp:    100,
		Locales:   NewStringSet("en-US"),
		Platforms: NewStringSet("IOS"),
	})
	if !r.MatchesConstraints(&stubContext{locale: "en-US", platform: "IOS"}) {
		t.Error("both axes satisfied should match")
	}
	if r.MatchesConstraints(&stubContext{locale: "en-US", platform: "ANDROID"}) {
		t.Error("one failing axis should reject")
	}
}
