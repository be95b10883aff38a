package registry

import (
	"log"

	"github.com/TimurManjosov/flagcore/snapshot"
)

// Hooks observes registry lifecycle transitions. Methods are called with the
// write mutex held, so implementations must be lightweight and non-blocking,
// and must not re-enter the registry.
type Hooks interface {
	OnLoad(old, new *snapshot.Materialized)
	OnRollback(from, to *snapshot.Materialized)
	OnDisableAll()
	OnEnableAll()
}

// NopHooks is the hook set that does nothing.
type NopHooks struct{}

func (NopHooks) OnLoad(old, new *snapshot.Materialized)     {}
func (NopHooks) OnRollback(from, to *snapshot.Materialized) {}
func (NopHooks) OnDisableAll()                              {}
func (NopHooks) OnEnableAll()                               {}

// safeHooks shields the registry from misbehaving hook implementations: a
// panic in a hook is logged and swallowed, never allowed to compromise a
// snapshot transition.
type safeHooks struct {
	h Hooks
}

func (s safeHooks) run(name string, fn func(Hooks)) {
	if s.h == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[registry] hook %s panicked: %v", name, r)
		}
	}()
	fn(s.h)
}

func (s safeHooks) OnLoad(old, new *snapshot.Materialized) {
	s.run("OnLoad", func(h Hooks) { h.OnLoad(old, new) })
}

func (s safeHooks) OnRollback(from, to *snapshot.Materialized) {
	s.run("OnRollback", func(h Hooks) { h.OnRollback(from, to) })
}

func (s safeHooks) OnDisableAll() {
	s.run("OnDisableAll", func(h Hooks) { h.OnDisableAll() })
}

func (s safeHooks) OnEnableAll() {
	s.run("OnEnableAll", func(h Hooks) { h.OnEnableAll() })
}
