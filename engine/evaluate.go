package engine

import (
	"time"

	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/rollout"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/values"
)

// Evaluate resolves a flag definition against a context.
//
// Rules are visited in their pre-sorted order, highest specificity first.
// A rule wins when all of its targeting predicates match and its ramp-up
// admits the cohort; admission holds when the rule's allowlist or the
// definition's namespace allowlist contains the stable id, or when the
// cohort's bucket is below the ramp-up threshold. If no rule wins, the
// default value is returned.
//
// Evaluation is total: extension predicates that error or panic are treated
// as non-matches and counted in the decision. The bucket is a function of
// (salt, feature, stable id) only, so it is computed at most once per call.
func Evaluate(def *flags.Definition, ctx *Context, mode Mode) (values.Value, Decision) {
	var start time.Time
	if mode == ModeExplain {
		start = time.Now()
	}

	d := Decision{MatchedRule: -1, SkippedRule: -1, Bucket: -1}

	if !def.Active {
		d.Reason = ReasonFlagInactive
		return finish(def.Default, d, mode, start)
	}

	bucket := -1 // computed lazily; identical for every rule of this flag
	ruleList := def.Rules()
	for i := range ruleList {
		r := &ruleList[i]
		if !r.MatchesConstraints(ctx) {
			continue
		}
		if !extensionsMatch(r, ctx, &d) {
			continue
		}
		if bucket < 0 {
			bucket = int(rollout.Bucket(def.Salt, def.ID.String(), ctx.StableID()))
		}
		admitted := r.RampUpAllowlist.Contains(ctx.StableID()) ||
			def.Allowlist.Contains(ctx.StableID()) ||
			rollout.Admitted(r.RampUp, uint32(bucket))
		if !admitted {
			if d.SkippedRule < 0 {
				d.SkippedRule = i
			}
			continue
		}
		d.Reason = ReasonRuleMatched
		d.MatchedRule = i
		d.Bucket = bucket
		return finish(r.Value, d, mode, start)
	}

	d.Reason = ReasonDefault
	if mode == ModeExplain {
		d.Bucket = bucket
	}
	return finish(def.Default, d, mode, start)
}

func extensionsMatch(r *rules.Rule, ctx *Context, d *Decision) bool {
	for i := range r.Extensions {
		if !extensionMatches(&r.Extensions[i], ctx, d) {
			return false
		}
	}
	return true
}

// extensionMatches runs one extension predicate, converting errors and
// panics into non-matches so evaluation stays total.
func extensionMatches(ext *rules.Extension, ctx *Context, d *Decision) (matched bool) {
	defer func() {
		if recover() != nil {
			d.ExtensionFailures++
			matched = false
		}
	}()
	if ext.Match == nil {
		return true
	}
	ok, err := ext.Match(ctx)
	if err != nil {
		d.ExtensionFailures++
		return false
	}
	return ok
}

func finish(v values.Value, d Decision, mode Mode, start time.Time) (values.Value, Decision) {
	if mode == ModeExplain {
		d.Duration = time.Since(start)
	}
	return v, d
}
