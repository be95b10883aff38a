// Package telemetry exposes Prometheus instrumentation for the engine:
// evaluation counters and registry lifecycle gauges, plus adapter types that
// plug into the registry's hook and observer interfaces.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/TimurManjosov/flagcore/engine"
	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/registry"
	"github.com/TimurManjosov/flagcore/snapshot"
	"github.com/TimurManjosov/flagcore/values"
)

var (
	evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagcore_evaluations_total",
			Help: "Flag evaluations by namespace and decision reason",
		},
		[]string{"namespace", "reason"},
	)
	extensionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagcore_extension_failures_total",
			Help: "Extension predicates that errored or panicked during evaluation",
		},
		[]string{"namespace"},
	)
	snapshotLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagcore_snapshot_loads_total",
			Help: "Snapshot loads by namespace",
		},
		[]string{"namespace"},
	)
	rollbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flagcore_rollbacks_total",
			Help: "Snapshot rollbacks by namespace",
		},
		[]string{"namespace"},
	)
	snapshotFlags = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flagcore_snapshot_flags",
			Help: "Number of flags in the active snapshot",
		},
		[]string{"namespace"},
	)
	killSwitch = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flagcore_kill_switch",
			Help: "Whether the namespace kill switch is engaged (1) or not (0)",
		},
		[]string{"namespace"},
	)
)

// Init registers the flagcore collectors with the default registry. Call
// once at startup.
func Init() {
	prometheus.MustRegister(evaluations, extensionFailures, snapshotLoads, rollbacks, snapshotFlags, killSwitch)
}

// RegistryHooks records lifecycle transitions for one namespace. It
// implements registry.Hooks.
type RegistryHooks struct {
	Namespace string
}

func (h RegistryHooks) OnLoad(old, new *snapshot.Materialized) {
	snapshotLoads.WithLabelValues(h.Namespace).Inc()
	if new != nil {
		snapshotFlags.WithLabelValues(h.Namespace).Set(float64(new.Len()))
	}
}

func (h RegistryHooks) OnRollback(from, to *snapshot.Materialized) {
	rollbacks.WithLabelValues(h.Namespace).Inc()
	if to != nil {
		snapshotFlags.WithLabelValues(h.Namespace).Set(float64(to.Len()))
	}
}

func (h RegistryHooks) OnDisableAll() {
	killSwitch.WithLabelValues(h.Namespace).Set(1)
}

func (h RegistryHooks) OnEnableAll() {
	killSwitch.WithLabelValues(h.Namespace).Set(0)
}

var _ registry.Hooks = RegistryHooks{}

// EvaluationObserver counts evaluations by decision reason. It implements
// engine.Observer and is cheap enough for the hot path: two counter
// increments, no allocation.
type EvaluationObserver struct {
	Namespace string
}

func (o EvaluationObserver) ObserveEvaluation(id flags.FeatureID, v values.Value, d engine.Decision) {
	evaluations.WithLabelValues(o.Namespace, string(d.Reason)).Inc()
	if d.ExtensionFailures > 0 {
		extensionFailures.WithLabelValues(o.Namespace).Add(float64(d.ExtensionFailures))
	}
}

var _ engine.Observer = EvaluationObserver{}
