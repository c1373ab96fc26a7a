// Package metrics holds the Prometheus collectors of the attention service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service collectors.
type Metrics struct {
	Operations    *prometheus.CounterVec
	Duration      *prometheus.HistogramVec
	Overloads     prometheus.Counter
	Utilization   *prometheus.GaugeVec
	QueueDepth    *prometheus.GaugeVec
	Distractions  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Subscriptions prometheus.Gauge
}

// New registers the collectors on registerer. Passing nil uses a private
// registry, so several services can coexist in one process.
func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_operations_total",
				Help: "Total number of attention operations",
			},
			[]string{"operation", "status"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "attention_operation_duration_seconds",
				Help: "Attention operation duration in seconds",
			},
			[]string{"operation"},
		),
		Overloads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "attention_overload_events_total",
				Help: "Total number of writes with the overload flag set",
			},
		),
		Utilization: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attention_cognitive_utilization",
				Help: "Latest cognitive load utilization per agent",
			},
			[]string{"agent"},
		),
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "attention_queue_depth",
				Help: "Pending items per priority tier of the last written queue",
			},
			[]string{"agent", "tier"},
		),
		Distractions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_distractions_total",
				Help: "Evaluated distractions by outcome",
			},
			[]string{"outcome"},
		),
		Notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "attention_notifications_total",
				Help: "Change notifications by result",
			},
			[]string{"result"},
		),
		Subscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "attention_active_subscriptions",
				Help: "Number of active change subscriptions",
			},
		),
	}
}

// Observe records an operation outcome and its duration.
func (m *Metrics) Observe(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.Operations.WithLabelValues(operation, status).Inc()
	m.Duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Load records the utilization written for agentID.
func (m *Metrics) Load(agentID string, utilization float64, overload bool) {
	if m == nil {
		return
	}
	m.Utilization.WithLabelValues(agentID).Set(utilization)
	if overload {
		m.Overloads.Inc()
	}
}

// Queue records the tier depths written for agentID.
func (m *Metrics) Queue(agentID string, depths map[string]int) {
	if m == nil {
		return
	}
	for tier, depth := range depths {
		m.QueueDepth.WithLabelValues(agentID, tier).Set(float64(depth))
	}
}

// Distraction counts an evaluated distraction.
func (m *Metrics) Distraction(allowed bool) {
	if m == nil {
		return
	}
	outcome := "filtered"
	if allowed {
		outcome = "allowed"
	}
	m.Distractions.WithLabelValues(outcome).Inc()
}

// Notification counts a delivery result: delivered or dropped.
func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(result).Inc()
}

// Subscribed adjusts the active subscription gauge.
func (m *Metrics) Subscribed(delta int) {
	if m == nil {
		return
	}
	m.Subscriptions.Add(float64(delta))
}
