package metrics

import "github.com/prometheus/client_golang/prometheus"

// BreakerMetrics exposes circuit breaker state per guarded dependency.
type BreakerMetrics struct {
	State        *prometheus.GaugeVec
	StateChanges *prometheus.CounterVec
}

func NewBreakerMetrics(reg prometheus.Registerer) *BreakerMetrics {
	m := &BreakerMetrics{
		State: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
		StateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state_changes_total",
			Help:      "Total number of circuit breaker transitions, by target state.",
		}, []string{"component", "state"}),
	}

	reg.MustRegister(m.State, m.StateChanges)
	return m
}

// Record notes a transition of component into state.
func (m *BreakerMetrics) Record(component, state string, value float64) {
	if m == nil {
		return
	}
	m.State.WithLabelValues(component).Set(value)
	m.StateChanges.WithLabelValues(component, state).Inc()
}
