// Package testutil provides fixtures shared across package tests.
package testutil

import (
	"testing"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/schema"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

// MustRule constructs a rule or fails the test.
func MustRule(t *testing.T, p rules.Params) rules.Rule {
	t.Helper()
	r, err := rules.New(p)
	if err != nil {
		t.Fatalf("rules.New: %v", err)
	}
	return r
}

// MustDefinition constructs a definition or fails the test.
func MustDefinition(t *testing.T, p flags.DefinitionParams) flags.Definition {
	t.Helper()
	def, err := flags.NewDefinition(p)
	if err != nil {
		t.Fatalf("flags.NewDefinition: %v", err)
	}
	return def
}

// BoolFlag builds an active boolean definition with the given rules.
func BoolFlag(t *testing.T, id flags.FeatureID, def bool, ruleList ...rules.Rule) flags.Definition {
	t.Helper()
	return MustDefinition(t, flags.DefinitionParams{
		ID:      id,
		Default: values.Bool(def),
		Rules:   ruleList,
		Active:  true,
	})
}

// BoolEntry declares a boolean schema entry whose fallback definition
// defaults to def.
func BoolEntry(t *testing.T, id flags.FeatureID, def bool) schema.Entry {
	t.Helper()
	return schema.Entry{
		ID:         id,
		Kind:       values.KindBoolean,
		Definition: BoolFlag(t, id, def),
	}
}

// MustSchema compiles a schema or fails the test.
func MustSchema(t *testing.T, namespace string, entries ...schema.Entry) *schema.Schema {
	t.Helper()
	s, err := schema.Build(namespace, entries)
	if err != nil {
		t.Fatalf("schema.Build: %v", err)
	}
	return s
}

// MustMaterialize builds a validated snapshot from definitions or fails the
// test.
func MustMaterialize(t *testing.T, s *schema.Schema, meta snapshot.Metadata, defs ...flags.Definition) *snapshot.Materialized {
	t.Helper()
	cfg, err := snapshot.NewConfiguration(defs, meta)
	if err != nil {
		t.Fatalf("snapshot.NewConfiguration: %v", err)
	}
	m, err := snapshot.Materialize(cfg, s)
	if err != nil {
		t.Fatalf("snapshot.Materialize: %v", err)
	}
	return m
}
