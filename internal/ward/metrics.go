package ward

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the triage subsystem.
type Metrics struct {
	ViewsTotal       prometheus.Counter
	ViewDuration     prometheus.Histogram
	ActionsTotal     *prometheus.CounterVec
	AlertsMutated    *prometheus.CounterVec
	EscalationsTotal *prometheus.CounterVec
	FeedRegensTotal  *prometheus.CounterVec
	AlertsInStore    prometheus.Gauge
	CriticalPatients prometheus.Gauge
	WarningPatients  prometheus.Gauge
	StablePatients   prometheus.Gauge
}

// NewMetrics registers and returns triage metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ViewsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wardwatch_triage_views_total",
			Help: "Total triage view cycles served.",
		}),
		ViewDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wardwatch_triage_view_duration_seconds",
			Help:    "Duration of triage view cycles in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8), // 0.1ms .. ~1.6s
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardwatch_actions_total",
			Help: "Total operator lifecycle actions by action and outcome.",
		}, []string{"action", "outcome"}),
		AlertsMutated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardwatch_alerts_mutated_total",
			Help: "Total alerts changed by operator actions, by action.",
		}, []string{"action"}),
		EscalationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardwatch_escalations_total",
			Help: "Total escalation dispatches by outcome.",
		}, []string{"outcome"}),
		FeedRegensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wardwatch_feed_regenerations_total",
			Help: "Total feed regenerations by outcome.",
		}, []string{"outcome"}),
		AlertsInStore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardwatch_alerts_in_store",
			Help: "Alert collection size after the last feed regeneration.",
		}),
		CriticalPatients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardwatch_critical_patients",
			Help: "Critical-status patients in the most recent triage view.",
		}),
		WarningPatients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardwatch_warning_patients",
			Help: "Warning-status patients in the most recent triage view.",
		}),
		StablePatients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wardwatch_stable_patients",
			Help: "Stable-status patients in the most recent triage view.",
		}),
	}

	reg.MustRegister(
		m.ViewsTotal,
		m.ViewDuration,
		m.ActionsTotal,
		m.AlertsMutated,
		m.EscalationsTotal,
		m.FeedRegensTotal,
		m.AlertsInStore,
		m.CriticalPatients,
		m.WarningPatients,
		m.StablePatients,
	)

	return m
}

// ObserveView records one triage cycle and the headline gauges it produced.
func (m *Metrics) ObserveView(d time.Duration, sum Summary) {
	m.ViewsTotal.Inc()
	m.ViewDuration.Observe(d.Seconds())
	m.CriticalPatients.Set(float64(sum.Critical))
	m.WarningPatients.Set(float64(sum.Warning))
	m.StablePatients.Set(float64(sum.Stable))
}

// ObserveAction records one acknowledge/snooze call and how many alerts it
// touched.
func (m *Metrics) ObserveAction(action string, err error, mutated int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
	m.AlertsMutated.WithLabelValues(action).Add(float64(mutated))
}

// ObserveEscalation records one escalation dispatch outcome.
func (m *Metrics) ObserveEscalation(outcome string) {
	m.EscalationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveFeedRegen records one feed regeneration and the new store size.
func (m *Metrics) ObserveFeedRegen(outcome string, size int) {
	m.FeedRegensTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.AlertsInStore.Set(float64(size))
	}
}
