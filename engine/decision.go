package engine

import (
	"time"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/values"
)

// Reason explains why an evaluation resolved the value it did.
type Reason string

const (
	// ReasonRuleMatched: a rule's predicates matched and its ramp-up admitted
	// the cohort.
	ReasonRuleMatched Reason = "RULE_MATCHED"
	// ReasonDefault: no rule matched; the default value was returned.
	ReasonDefault Reason = "DEFAULT"
	// ReasonFlagInactive: the flag is inactive; rules were not consulted.
	ReasonFlagInactive Reason = "FLAG_INACTIVE"
	// ReasonRegistryDisabled: the namespace kill switch is on.
	ReasonRegistryDisabled Reason = "REGISTRY_DISABLED"
)

// Mode selects how much diagnostic work an evaluation does.
type Mode uint8

const (
	// ModeNormal resolves the value with minimal bookkeeping.
	ModeNormal Mode = iota
	// ModeExplain additionally populates the decision's diagnostic fields:
	// bucket, skipped rule, duration and snapshot version.
	ModeExplain
)

// Decision is the trace of one evaluation. MatchedRule, SkippedRule and
// Bucket are -1 when not applicable or not populated for the mode.
type Decision struct {
	Reason Reason

	// MatchedRule is the index (in evaluation order) of the winning rule.
	MatchedRule int
	// SkippedRule is the index of the highest-specificity rule whose
	// predicates matched but whose ramp-up rejected the cohort.
	SkippedRule int
	// Bucket is the cohort's bucket for this flag's salt.
	Bucket int

	// ExtensionFailures counts extension predicates that errored or panicked
	// during this evaluation; each such rule was treated as a non-match.
	ExtensionFailures int

	// Duration and ConfigVersion are populated in explain mode (the registry
	// fills ConfigVersion from the active snapshot's metadata).
	Duration      time.Duration
	ConfigVersion string
}

// Observer is notified after each evaluation, on the evaluating goroutine.
// Implementations must be fast, must not block, and must not re-enter the
// registry.
type Observer interface {
	ObserveEvaluation(id flags.FeatureID, value values.Value, d Decision)
}
