// Package metrics exposes the node's instrumentation behind go-kit's
// metrics abstraction, backed by a Prometheus registry — the same
// layering the teacher uses for its consensus/API metrics
// (lib/metrics/consensus.go, lib/metrics/prom.go), so the
// counters/gauges here could be re-backed by another go-kit adapter
// (e.g. discard, for tests) without touching call sites. As in the
// teacher, the go-kit prometheus adapters register against
// Prometheus's global default registry; callers serve it with
// promhttp.Handler(), exactly as lib/node/runner/node_runner.go does.
package metrics

import (
	gokitmetrics "github.com/go-kit/kit/metrics"
	gokitprometheus "github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const namespace = "fbanode"

// Metrics groups every counter/gauge the core updates.
type Metrics struct {
	CastsSent         gokitmetrics.Counter
	CastsExternalized gokitmetrics.Counter
	CastsRejected     gokitmetrics.Counter
	ActiveSlots       gokitmetrics.Gauge
}

// New builds a fresh metric set, registering its collectors against
// Prometheus's default registry. Call it at most once per process.
func New() *Metrics {
	return &Metrics{
		CastsSent: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_sent_total",
			Help:      "Casts proposed via Send, regardless of outcome.",
		}, []string{}),
		CastsExternalized: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_externalized_total",
			Help:      "Casts that reached externalization and updated the cast store.",
		}, []string{}),
		CastsRejected: gokitprometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Name:      "casts_rejected_total",
			Help:      "Externalized values dropped for failing signature/hash verification.",
		}, []string{}),
		ActiveSlots: gokitprometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_slots",
			Help:      "Slots held by the engine: created and not yet reclaimed.",
		}, []string{}),
	}
}
