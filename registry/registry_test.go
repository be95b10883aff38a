package registry_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/TimurManjosov/flagcore/codec"
	"github.com/TimurManjosov/flagcore/engine"
	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/internal/testutil"
	"github.com/TimurManjosov/flagcore/registry"
	"github.com/TimurManjosov/flagcore/rules"
	"github.com/TimurManjosov/flagcore/schema"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

var darkMode = flags.NewFeatureID("app", "darkMode")

func boolSchema(t *testing.T) *schema.Schema {
	t.Helper()
	return testutil.MustSchema(t, "app", testutil.BoolEntry(t, darkMode, false))
}

// boolSnapshot builds a one-flag snapshot whose single rule returns value
// for everyone.
func boolSnapshot(t *testing.T, s *schema.Schema, version string, value bool) *snapshot.Materialized {
	t.Helper()
	rule := testutil.MustRule(t, rules.Params{Value: values.Bool(value), RampUp: 100})
	def := testutil.BoolFlag(t, darkMode, false, rule)
	return testutil.MustMaterialize(t, s, snapshot.Metadata{Version: version}, def)
}

func newRegistry(t *testing.T, s *schema.Schema, initial *snapshot.Materialized) *registry.Registry {
	t.Helper()
	r, err := registry.New(s, initial, 0, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return r
}

func evalBool(t *testing.T, r *registry.Registry, id string) (bool, engine.Decision) {
	t.Helper()
	v, d, err := r.Evaluate(darkMode, engine.NewContext(identity.FromString(id)), engine.ModeNormal)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return v.BoolVal, d
}

func TestLoad_ThenCurrentConfiguration(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, nil)
	m := boolSnapshot(t, s, "a", true)

	if err := r.Load(m); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := r.CurrentConfiguration(); got != m {
		t.Errorf("CurrentConfiguration = %p, want %p", got, m)
	}
}

func TestEvaluate_BeforeFirstLoadErrors(t *testing.T) {
	r := newRegistry(t, boolSchema(t), nil)
	_, _, err := r.Evaluate(darkMode, engine.NewContext(identity.FromString("u")), engine.ModeNormal)
	if err == nil {
		t.Error("evaluation before first load succeeded, want error")
	}
}

func TestEvaluate_UnknownFeatureErrors(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, boolSnapshot(t, s, "a", true))
	_, _, err := r.Evaluate(flags.NewFeatureID("app", "nope"), engine.NewContext(identity.FromString("u")), engine.ModeNormal)
	if err == nil {
		t.Error("unknown feature succeeded, want error")
	}
}

func TestRollback(t *testing.T) {
	s := boolSchema(t)
	a := boolSnapshot(t, s, "a", false)
	b := boolSnapshot(t, s, "b", true)
	r := newRegistry(t, s, nil)

	if err := r.Load(a); err != nil {
		t.Fatalf("Load a: %v", err)
	}
	if err := r.Load(b); err != nil {
		t.Fatalf("Load b: %v", err)
	}

	if !r.Rollback(1) {
		t.Fatal("Rollback(1) = false, want true")
	}
	if got := r.CurrentConfiguration(); got != a {
		t.Errorf("after rollback active = %q, want a", got.Metadata().Version)
	}
	// a's predecessor was nil; the history is now empty.
	if r.Rollback(1) {
		t.Error("second Rollback(1) = true, want false")
	}
	if got := r.CurrentConfiguration(); got != a {
		t.Error("failed rollback must leave state unchanged")
	}
}

func TestRollback_MultipleSteps(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, nil)
	snaps := make([]*snapshot.Materialized, 4)
	for i := range snaps {
		snaps[i] = boolSnapshot(t, s, fmt.Sprintf("v%d", i), i%2 == 0)
		if err := r.Load(snaps[i]); err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
	}

	if !r.Rollback(2) {
		t.Fatal("Rollback(2) failed")
	}
	if got := r.CurrentConfiguration(); got != snaps[1] {
		t.Errorf("active = %q, want v1", got.Metadata().Version)
	}
	// v2 and v3 are gone; only v0 remains rollback-able.
	if len(r.History()) != 1 {
		t.Errorf("history length = %d, want 1", len(r.History()))
	}
}

func TestHistory_Bounded(t *testing.T) {
	s := boolSchema(t)
	r, err := registry.New(s, nil, 3, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := r.Load(boolSnapshot(t, s, fmt.Sprintf("v%d", i), true)); err != nil {
			t.Fatalf("Load %d: %v", i, err)
		}
	}
	h := r.History()
	if len(h) != 3 {
		t.Fatalf("history length = %d, want 3", len(h))
	}
	// Oldest first: the three snapshots replaced most recently.
	wantVersions := []string{"v6", "v7", "v8"}
	for i, want := range wantVersions {
		if h[i].Metadata.Version != want {
			t.Errorf("history[%d] = %q, want %q", i, h[i].Metadata.Version, want)
		}
	}
}

func TestKillSwitch(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, boolSnapshot(t, s, "a", true))

	if on, _ := evalBool(t, r, "user-1"); !on {
		t.Fatal("rule should match before the kill switch")
	}

	r.DisableAll()
	if !r.Disabled() {
		t.Error("Disabled() = false after DisableAll")
	}
	on, d := evalBool(t, r, "user-1")
	if on || d.Reason != engine.ReasonRegistryDisabled {
		t.Errorf("kill-switched: got %t (%s), want default via REGISTRY_DISABLED", on, d.Reason)
	}

	r.EnableAll()
	if on, _ := evalBool(t, r, "user-1"); !on {
		t.Error("pre-disable output did not return after EnableAll")
	}
}

func TestLoad_RejectsForeignSchema(t *testing.T) {
	s1 := boolSchema(t)
	s2 := boolSchema(t)
	r := newRegistry(t, s1, nil)
	if err := r.Load(boolSnapshot(t, s2, "x", true)); err == nil {
		t.Error("snapshot from a different schema instance accepted")
	}
}

type recordingHooks struct {
	mu        sync.Mutex
	loads     int
	rollbacks int
	disables  int
	enables   int
}

func (h *recordingHooks) OnLoad(old, new *snapshot.Materialized) {
	h.mu.Lock()
	h.loads++
	h.mu.Unlock()
}
func (h *recordingHooks) OnRollback(from, to *snapshot.Materialized) {
	h.mu.Lock()
	h.rollbacks++
	h.mu.Unlock()
}
func (h *recordingHooks) OnDisableAll() {
	h.mu.Lock()
	h.disables++
	h.mu.Unlock()
}
func (h *recordingHooks) OnEnableAll() {
	h.mu.Lock()
	h.enables++
	h.mu.Unlock()
}

func TestHooks_Fire(t *testing.T) {
	s := boolSchema(t)
	hooks := &recordingHooks{}
	r, err := registry.New(s, nil, 0, hooks)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	_ = r.Load(boolSnapshot(t, s, "a", true))
	_ = r.Load(boolSnapshot(t, s, "b", true))
	r.Rollback(1)
	r.DisableAll()
	r.EnableAll()

	if hooks.loads != 2 || hooks.rollbacks != 1 || hooks.disables != 1 || hooks.enables != 1 {
		t.Errorf("hook counts = %+v", hooks)
	}
}

type panickingHooks struct{ registry.NopHooks }

func (panickingHooks) OnLoad(old, new *snapshot.Materialized) { panic("hook bug") }

func TestHooks_PanicDoesNotCompromiseLoad(t *testing.T) {
	s := boolSchema(t)
	r, err := registry.New(s, nil, 0, panickingHooks{})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	m := boolSnapshot(t, s, "a", true)
	if err := r.Load(m); err != nil {
		t.Fatalf("Load with panicking hook: %v", err)
	}
	if r.CurrentConfiguration() != m {
		t.Error("snapshot swap lost to a hook panic")
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	count int
	last  engine.Decision
}

func (o *recordingObserver) ObserveEvaluation(id flags.FeatureID, v values.Value, d engine.Decision) {
	o.mu.Lock()
	o.count++
	o.last = d
	o.mu.Unlock()
}

func TestObserver_SeesDecisions(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, boolSnapshot(t, s, "v7", true))
	obs := &recordingObserver{}
	r.SetObserver(obs)

	_, _, err := r.Evaluate(darkMode, engine.NewContext(identity.FromString("u")), engine.ModeExplain)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if obs.count != 1 {
		t.Fatalf("observer count = %d, want 1", obs.count)
	}
	if obs.last.ConfigVersion != "v7" {
		t.Errorf("observer ConfigVersion = %q, want v7", obs.last.ConfigVersion)
	}
}

func TestConcurrentEvaluateAndLoad(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, boolSnapshot(t, s, "init", true))

	stop := make(chan struct{})
	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = r.Load(boolSnapshot(t, s, fmt.Sprintf("v%d", i), i%2 == 0))
			if i%3 == 0 {
				r.Rollback(1)
			}
		}
	}()

	// Readers: every evaluation must succeed against exactly one snapshot,
	// whichever is active when it starts.
	var readers sync.WaitGroup
	for g := 0; g < 4; g++ {
		readers.Add(1)
		go func(g int) {
			defer readers.Done()
			for i := 0; i < 2000; i++ {
				ctx := engine.NewContext(identity.FromString(fmt.Sprintf("user-%d-%d", g, i)))
				if _, _, err := r.Evaluate(darkMode, ctx, engine.ModeNormal); err != nil {
					t.Errorf("Evaluate: %v", err)
					return
				}
			}
		}(g)
	}

	readers.Wait()
	close(stop)
	writer.Wait()

	if len(r.History()) > registry.DefaultHistoryLimit {
		t.Errorf("history exceeded limit: %d", len(r.History()))
	}
}

func TestSnapshotLoader(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, nil)
	loader := registry.NewSnapshotLoader(r, codec.Strict())

	valid := `{"meta": {"version": "a"}, "flags": [
	  {"key": "app::darkMode", "defaultValue": {"type": "BOOLEAN", "value": true}}
	]}`
	m, err := loader.Load([]byte(valid))
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}
	if r.CurrentConfiguration() != m {
		t.Error("loader did not install the decoded snapshot")
	}
	if on, _ := evalBool(t, r, "user-1"); !on {
		t.Error("loaded default should be true")
	}

	// A failing load leaves the active snapshot in force.
	if _, err := loader.Load([]byte(`{"flags": [`)); err == nil {
		t.Fatal("invalid JSON accepted")
	} else if perr, ok := err.(*codec.ParseError); !ok || perr.Kind != codec.ErrInvalidJSON {
		t.Fatalf("err = %v, want ErrInvalidJSON", err)
	}
	if r.CurrentConfiguration() != m {
		t.Error("failed load disturbed the active snapshot")
	}
	if on, _ := evalBool(t, r, "user-1"); !on {
		t.Error("evaluations after failed load should still see snapshot a")
	}
}

func TestSnapshotLoader_StampsMissingVersion(t *testing.T) {
	s := boolSchema(t)
	r := newRegistry(t, s, nil)
	loader := registry.NewSnapshotLoader(r, codec.Strict())

	payload := `{"flags": [
	  {"key": "app::darkMode", "defaultValue": {"type": "BOOLEAN", "value": false}}
	]}`
	m, err := loader.Load([]byte(payload))
	if err != nil {
		t.Fatalf("loader.Load: %v", err)
	}
	if m.Metadata().Version == "" {
		t.Error("loader should stamp a version onto unversioned payloads")
	}
}
