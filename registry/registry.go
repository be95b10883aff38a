// Package registry holds the active configuration snapshot for one
// namespace and serves evaluations against it.
//
// Concurrency protocol: readers load the active snapshot through an atomic
// pointer and never take a lock; the evaluation path is wait-free. Writers
// (Load, Rollback, DisableAll, EnableAll) serialise on a per-registry mutex
// and publish the new (active, history) pair with atomic stores, so a
// concurrent reader observes either entirely the old snapshot or entirely
// the new one, never a mixture. Namespaces are independent: there is no
// cross-registry ordering.
package registry

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/TimurManjosov/flagcore/engine"
	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/schema"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

// DefaultHistoryLimit bounds how many replaced snapshots are retained for
// rollback when no limit is configured.
const DefaultHistoryLimit = 10

// observerBox wraps the observer interface so it can sit in an
// atomic.Pointer.
type observerBox struct {
	o engine.Observer
}

type hooksBox struct {
	h safeHooks
}

// Registry is the runtime holder of one namespace's active snapshot. Create
// one with New; the zero value is not usable.
type Registry struct {
	schema       *schema.Schema
	historyLimit int

	// mu serialises mutation of (active, history, killSwitch) so they
	// transition together. Reads never take it.
	mu      sync.Mutex
	active  atomic.Pointer[snapshot.Materialized]
	history atomic.Pointer[[]*snapshot.Materialized]

	killSwitch atomic.Bool
	hooks      atomic.Pointer[hooksBox]
	observer   atomic.Pointer[observerBox]
}

// HistoryEntry describes one retained snapshot, for observability.
type HistoryEntry struct {
	Fingerprint uint64
	Metadata    snapshot.Metadata
}

// New creates a registry for the schema with an initial snapshot. initial
// may be nil; evaluations against an empty registry fail until the first
// Load. historyLimit <= 0 selects DefaultHistoryLimit.
func New(s *schema.Schema, initial *snapshot.Materialized, historyLimit int, hooks Hooks) (*Registry, error) {
	if s == nil {
		return nil, fmt.Errorf("registry: schema is required")
	}
	if initial != nil && initial.Schema() != s {
		return nil, fmt.Errorf("registry %s: initial snapshot was materialized against a different schema", s.Namespace())
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	r := &Registry{schema: s, historyLimit: historyLimit}
	empty := make([]*snapshot.Materialized, 0, historyLimit)
	r.history.Store(&empty)
	r.active.Store(initial)
	r.hooks.Store(&hooksBox{h: safeHooks{h: hooks}})
	r.observer.Store(&observerBox{})
	return r, nil
}

// Namespace returns the namespace this registry owns.
func (r *Registry) Namespace() string { return r.schema.Namespace() }

// Schema returns the compiled schema.
func (r *Registry) Schema() *schema.Schema { return r.schema }

// Load atomically replaces the active snapshot. The previously-active
// snapshot is pushed onto the rollback history, truncating the oldest entry
// when the history is full.
func (r *Registry) Load(m *snapshot.Materialized) error {
	if m == nil {
		return fmt.Errorf("registry %s: cannot load nil snapshot", r.Namespace())
	}
	if m.Schema() != r.schema {
		return fmt.Errorf("registry %s: snapshot was materialized against a different schema", r.Namespace())
	}

	r.mu.Lock()
	old := r.active.Load()
	if old != nil {
		r.pushHistoryLocked(old)
	}
	r.active.Store(m)
	hooks := r.hooks.Load().h
	hooks.OnLoad(old, m)
	r.mu.Unlock()

	log.Printf("[registry] %s: loaded snapshot version=%q flags=%d fingerprint=%016x",
		r.Namespace(), m.Metadata().Version, m.Len(), m.Fingerprint())
	return nil
}

// pushHistoryLocked appends to a fresh history slice and publishes it.
// Callers hold mu. The retained sequence runs oldest to most recent.
func (r *Registry) pushHistoryLocked(m *snapshot.Materialized) {
	current := *r.history.Load()
	next := make([]*snapshot.Materialized, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, m)
	if len(next) > r.historyLimit {
		next = next[len(next)-r.historyLimit:]
	}
	r.history.Store(&next)
}

// Rollback reverts to the snapshot that was active steps loads ago. It
// returns false, leaving state unchanged, when the history holds fewer than
// steps entries. The replaced snapshot is not itself retained: rollbacks are
// not undoable.
func (r *Registry) Rollback(steps int) bool {
	if steps <= 0 {
		return false
	}

	r.mu.Lock()
	current := *r.history.Load()
	if len(current) < steps {
		r.mu.Unlock()
		return false
	}
	from := r.active.Load()
	target := current[len(current)-steps]
	next := make([]*snapshot.Materialized, len(current)-steps)
	copy(next, current[:len(current)-steps])
	r.history.Store(&next)
	r.active.Store(target)
	hooks := r.hooks.Load().h
	hooks.OnRollback(from, target)
	r.mu.Unlock()

	log.Printf("[registry] %s: rolled back %d step(s) to version=%q fingerprint=%016x",
		r.Namespace(), steps, target.Metadata().Version, target.Fingerprint())
	return true
}

// DisableAll turns on the namespace kill switch: every evaluation returns
// its flag's default value until EnableAll. The active snapshot is not
// altered.
func (r *Registry) DisableAll() {
	r.mu.Lock()
	r.killSwitch.Store(true)
	hooks := r.hooks.Load().h
	hooks.OnDisableAll()
	r.mu.Unlock()
	log.Printf("[registry] %s: kill switch engaged", r.Namespace())
}

// EnableAll releases the kill switch.
func (r *Registry) EnableAll() {
	r.mu.Lock()
	r.killSwitch.Store(false)
	hooks := r.hooks.Load().h
	hooks.OnEnableAll()
	r.mu.Unlock()
	log.Printf("[registry] %s: kill switch released", r.Namespace())
}

// Disabled reports whether the kill switch is on.
func (r *Registry) Disabled() bool { return r.killSwitch.Load() }

// CurrentConfiguration returns the active snapshot, or nil before the first
// load. The read is atomic and lock-free.
func (r *Registry) CurrentConfiguration() *snapshot.Materialized {
	return r.active.Load()
}

// History returns fingerprint and metadata for each retained snapshot,
// oldest first.
func (r *Registry) History() []HistoryEntry {
	current := *r.history.Load()
	out := make([]HistoryEntry, len(current))
	for i, m := range current {
		out[i] = HistoryEntry{Fingerprint: m.Fingerprint(), Metadata: m.Metadata()}
	}
	return out
}

// SetHooks swaps the lifecycle hooks. Passing nil removes them.
func (r *Registry) SetHooks(h Hooks) {
	r.hooks.Store(&hooksBox{h: safeHooks{h: h}})
}

// SetObserver swaps the per-evaluation observer. Passing nil removes it.
func (r *Registry) SetObserver(o engine.Observer) {
	r.observer.Store(&observerBox{o: o})
}

// Evaluate resolves a feature against the active snapshot. It reads the
// snapshot atomically and never blocks on writers; each evaluation is
// internally consistent against exactly one snapshot. The only error cases
// are a feature id the schema does not declare and evaluation before the
// first load — both caller bugs, not data-dependent failures.
func (r *Registry) Evaluate(id flags.FeatureID, ctx *engine.Context, mode engine.Mode) (values.Value, engine.Decision, error) {
	active := r.active.Load()
	if active == nil {
		return values.Value{}, engine.Decision{}, fmt.Errorf("registry %s: no snapshot loaded", r.Namespace())
	}
	def, ok := active.Definition(id)
	if !ok {
		return values.Value{}, engine.Decision{}, fmt.Errorf("registry %s: feature %s not declared", r.Namespace(), id)
	}

	var v values.Value
	var d engine.Decision
	if r.killSwitch.Load() {
		v = def.Default
		d = engine.Decision{Reason: engine.ReasonRegistryDisabled, MatchedRule: -1, SkippedRule: -1, Bucket: -1}
	} else {
		v, d = engine.Evaluate(&def, ctx, mode)
	}
	if mode == engine.ModeExplain {
		d.ConfigVersion = active.Metadata().Version
	}

	if box := r.observer.Load(); box != nil && box.o != nil {
		observe(box.o, id, v, d)
	}
	return v, d, nil
}

// observe shields evaluation from observer panics.
func observe(o engine.Observer, id flags.FeatureID, v values.Value, d engine.Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[registry] evaluation observer panicked: %v", rec)
		}
	}()
	o.ObserveEvaluation(id, v, d)
}
