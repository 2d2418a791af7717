package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/energy"
)

// Metrics exposes admission decisions and energy levels to Prometheus. It
// implements tool.DecisionRecorder so the executor can count outcomes
// without importing this package.
type Metrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
}

// NewMetrics builds a self-contained registry. ledger and auditLog may be
// nil; the corresponding gauges are simply not registered.
func NewMetrics(ledger *energy.Ledger, auditLog *audit.Logger) *Metrics {
	reg := prometheus.NewRegistry()

	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warden",
		Name:      "tool_decisions_total",
		Help:      "Tool call admission decisions by tool and outcome.",
	}, []string{"tool", "decision"})
	reg.MustRegister(decisions)

	if ledger != nil && ledger.Enabled() {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "warden",
			Name:      "energy_available",
			Help:      "Current energy balance after regeneration.",
		}, ledger.Available))
	}
	if auditLog != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "audit_dropped_total",
			Help:      "Audit entries dropped because the write queue was full.",
		}, func() float64 { return float64(auditLog.Dropped()) }))
	}

	return &Metrics{registry: reg, decisions: decisions}
}

// RecordDecision implements tool.DecisionRecorder.
func (m *Metrics) RecordDecision(tool, decision string) {
	m.decisions.WithLabelValues(tool, decision).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
