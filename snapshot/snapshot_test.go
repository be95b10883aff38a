package snapshot_test

import (
	"testing"
	"time"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/internal/testutil"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

func TestNewConfiguration_RejectsDuplicates(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	def := testutil.BoolFlag(t, id, false)
	_, err := snapshot.NewConfiguration([]flags.Definition{def, def}, snapshot.Metadata{})
	if err == nil {
		t.Error("duplicate feature accepted")
	}
}

func TestConfiguration_PreservesOrder(t *testing.T) {
	b := testutil.BoolFlag(t, flags.NewFeatureID("app", "b"), false)
	a := testutil.BoolFlag(t, flags.NewFeatureID("app", "a"), false)
	cfg, err := snapshot.NewConfiguration([]flags.Definition{b, a}, snapshot.Metadata{})
	if err != nil {
		t.Fatalf("NewConfiguration: %v", err)
	}
	got := cfg.Features()
	if got[0] != b.ID || got[1] != a.ID {
		t.Errorf("Features = %v, want insertion order", got)
	}
}

func TestFingerprint_StableAndContentSensitive(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	mk := func(def bool) *snapshot.Configuration {
		cfg, err := snapshot.NewConfiguration(
			[]flags.Definition{testutil.BoolFlag(t, id, def)}, snapshot.Metadata{})
		if err != nil {
			t.Fatalf("NewConfiguration: %v", err)
		}
		return cfg
	}
	if mk(false).Fingerprint() != mk(false).Fingerprint() {
		t.Error("identical configurations fingerprint differently")
	}
	if mk(false).Fingerprint() == mk(true).Fingerprint() {
		t.Error("different defaults fingerprint equally")
	}
}

func TestFingerprint_IgnoresMetadata(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	def := testutil.BoolFlag(t, id, false)
	a, _ := snapshot.NewConfiguration([]flags.Definition{def}, snapshot.Metadata{Version: "1"})
	b, _ := snapshot.NewConfiguration([]flags.Definition{def}, snapshot.Metadata{Version: "2"})
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("metadata should not affect the fingerprint")
	}
}

func TestFingerprint_SensitiveToRules(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	plain, _ := snapshot.NewConfiguration(
		[]flags.Definition{testutil.BoolFlag(t, id, false)}, snapshot.Metadata{})
	ruled, _ := snapshot.NewConfiguration(
		[]flags.Definition{testutil.BoolFlag(t, id, false, testutil.MustRule(t, rules.Params{
			Value:     values.Bool(true),
			RampUp:    50,
			Platforms: rules.NewStringSet("IOS"),
		}))}, snapshot.Metadata{})
	if plain.Fingerprint() == ruled.Fingerprint() {
		t.Error("adding a rule should change the fingerprint")
	}
}

func TestEqual(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	def := testutil.BoolFlag(t, id, false)
	meta := snapshot.Metadata{Version: "1", GeneratedAt: time.UnixMilli(1000).UTC(), Source: "s3"}
	a, _ := snapshot.NewConfiguration([]flags.Definition{def}, meta)
	b, _ := snapshot.NewConfiguration([]flags.Definition{def}, meta)
	if !a.Equal(b) {
		t.Error("identical configurations unequal")
	}
	c, _ := snapshot.NewConfiguration([]flags.Definition{def}, snapshot.Metadata{Version: "2"})
	if a.Equal(c) {
		t.Error("configurations with different metadata equal")
	}
}

func TestMaterialize_Validates(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	other := flags.NewFeatureID("app", "y")
	s := testutil.MustSchema(t, "app", testutil.BoolEntry(t, id, false))

	good, _ := snapshot.NewConfiguration(
		[]flags.Definition{testutil.BoolFlag(t, id, true)}, snapshot.Metadata{})
	if _, err := snapshot.Materialize(good, s); err != nil {
		t.Errorf("valid configuration rejected: %v", err)
	}

	undeclared, _ := snapshot.NewConfiguration(
		[]flags.Definition{testutil.BoolFlag(t, other, true)}, snapshot.Metadata{})
	if _, err := snapshot.Materialize(undeclared, s); err == nil {
		t.Error("configuration with undeclared feature accepted")
	}

	empty, _ := snapshot.NewConfiguration(nil, snapshot.Metadata{})
	if _, err := snapshot.Materialize(empty, s); err == nil {
		t.Error("configuration missing a declared feature accepted")
	}
}

func TestMaterialize_RejectsKindMismatch(t *testing.T) {
	id := flags.NewFeatureID("app", "x")
	s := testutil.MustSchema(t, "app", testutil.BoolEntry(t, id, false))

	stringDef := testutil.MustDefinition(t, flags.DefinitionParams{
		ID:      id,
		Default: values.String("nope"),
		Active:  true,
	})
	cfg, _ := snapshot.NewConfiguration([]flags.Definition{stringDef}, snapshot.Metadata{})
	if _, err := snapshot.Materialize(cfg, s); err == nil {
		t.Error("configuration with mismatched value kind accepted")
	}
}
