// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the proxy's Prometheus counters and gauges: active
// sessions per engine, admission outcomes, firewall command failures, and
// subnet-plan compute duration.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns every metric the daemon publishes. A fresh Registry is
// meant to be constructed once at boot and shared by every package that
// reports counters.
type Registry struct {
	reg *prometheus.Registry

	ActiveSessions   *prometheus.GaugeVec
	Admitted         *prometheus.CounterVec
	Blocked          *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	FirewallFailures prometheus.Counter
	SubnetPlanSeconds prometheus.Histogram
}

// NewRegistry builds a Registry with every metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		reg: reg,
		ActiveSessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chessuci",
			Name:      "active_sessions",
			Help:      "Number of currently active engine sessions, by engine.",
		}, []string{"engine"}),
		Admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessuci",
			Name:      "admitted_connections_total",
			Help:      "Connections classified as trusted or as untrusted but under the attempt limit, by classification.",
		}, []string{"classification"}),
		Blocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessuci",
			Name:      "blocked_connections_total",
			Help:      "Connections rejected at admission, by reason.",
		}, []string{"reason"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chessuci",
			Name:      "rate_limited_attempts_total",
			Help:      "Connection attempts counted against the per-IP sliding window, by engine.",
		}, []string{"engine"}),
		FirewallFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chessuci",
			Name:      "firewall_command_failures_total",
			Help:      "Failed netsh firewall provisioning commands.",
		}),
		SubnetPlanSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chessuci",
			Name:      "subnet_plan_compute_seconds",
			Help:      "Time spent computing the subnet exclusion plan.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(r.ActiveSessions, r.Admitted, r.Blocked, r.RateLimited, r.FirewallFailures, r.SubnetPlanSeconds)
	return r
}

// Gatherer exposes the underlying prometheus.Gatherer for an HTTP handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// SessionOpened increments the active-session gauge for engine.
func (r *Registry) SessionOpened(engine string) {
	r.ActiveSessions.WithLabelValues(engine).Inc()
}

// SessionClosed decrements the active-session gauge for engine.
func (r *Registry) SessionClosed(engine string) {
	r.ActiveSessions.WithLabelValues(engine).Dec()
}

// Totals is a coarse snapshot of admission activity across every engine
// and label, for the console dashboard's header cards. It is not meant to
// substitute for /metrics: it only sums counter values already recorded.
type Totals struct {
	ActiveSessions int
	Admitted       int
	Blocked        int
	RateLimited    int
}

// Totals sums every label of the admission counters and gauges.
func (r *Registry) Totals() Totals {
	var t Totals
	families, err := r.reg.Gather()
	if err != nil {
		return t
	}
	for _, fam := range families {
		var sum float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			}
		}
		switch fam.GetName() {
		case "chessuci_active_sessions":
			t.ActiveSessions = int(sum)
		case "chessuci_admitted_connections_total":
			t.Admitted = int(sum)
		case "chessuci_blocked_connections_total":
			t.Blocked = int(sum)
		case "chessuci_rate_limited_attempts_total":
			t.RateLimited = int(sum)
		}
	}
	return t
}
